package scheduler

import (
	"context"
	"errors"
	"study_notebook_backend/pkg/monitoring"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	fail  atomic.Bool
	pings atomic.Int32
}

func (f *fakeStore) Ping(context.Context) error {
	f.pings.Add(1)
	if f.fail.Load() {
		return errors.New("no reachable servers")
	}
	return nil
}

func (f *fakeStore) StoreName() string { return "fake" }

func TestProbeDocumentStoreSetsGauge(t *testing.T) {
	store := &fakeStore{}
	s := New(store, time.Minute)

	assert.True(t, s.ProbeDocumentStore())
	assert.Equal(t, float64(1), testutil.ToFloat64(monitoring.DocumentStoreUp))

	store.fail.Store(true)
	assert.False(t, s.ProbeDocumentStore())
	assert.Equal(t, float64(0), testutil.ToFloat64(monitoring.DocumentStoreUp))
}

func TestStartRunsProbeImmediately(t *testing.T) {
	store := &fakeStore{}
	s := New(store, time.Hour)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return store.pings.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}
