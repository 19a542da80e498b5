package util

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// MonotonicClock 返回毫秒精度的 UTC 时间，并保证连续调用严格递增
type MonotonicClock struct {
	mu     sync.Mutex
	last   time.Time
	source func() time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{source: time.Now}
}

// NewMonotonicClockFrom 使用自定义时间源，测试用
func NewMonotonicClockFrom(source func() time.Time) *MonotonicClock {
	return &MonotonicClock{source: source}
}

func (c *MonotonicClock) Now() time.Time {
	now := c.source().UTC().Truncate(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !now.After(c.last) {
		now = c.last.Add(time.Millisecond)
	}
	c.last = now
	return now
}

// Today 当天日期 YYYY-MM-DD
func Today(c Clock) string {
	return c.Now().Format(DateFormat)
}
