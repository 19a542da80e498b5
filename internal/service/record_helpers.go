package service

import (
	"errors"
	"study_notebook_backend/internal/util"
	"time"

	"github.com/google/uuid"
)

// ErrRecordUnavailable 读取用户数据失败，此时不能基于空数据写回
var ErrRecordUnavailable = errors.New("user record is temporarily unavailable")

func newEntryID() string {
	return uuid.NewString()
}

func validDate(s string) bool {
	_, err := time.Parse(util.DateFormat, s)
	return err == nil
}

func indexOf[T any](items []T, id string, key func(T) string) int {
	for i, item := range items {
		if key(item) == id {
			return i
		}
	}
	return -1
}

// without 返回删除第 i 个元素后的新切片，不修改原切片
func without[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}
