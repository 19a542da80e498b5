package scheduler

import (
	"context"
	"study_notebook_backend/pkg/logger"
	"study_notebook_backend/pkg/monitoring"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

const (
	StoreProbeJob     = "document-store-probe"
	defaultProbeEvery = 30 * time.Second
	probeTimeout      = 5 * time.Second
)

// StorePinger 被探测的文档存储
type StorePinger interface {
	Ping(ctx context.Context) error
	StoreName() string
}

// Scheduler 管理后台定时任务
type Scheduler struct {
	scheduler  *gocron.Scheduler
	store      StorePinger
	probeEvery time.Duration
}

func New(store StorePinger, probeEvery time.Duration) *Scheduler {
	if probeEvery <= 0 {
		probeEvery = defaultProbeEvery
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:  s,
		store:      store,
		probeEvery: probeEvery,
	}
}

// Start 注册任务并异步运行，首次探测立即执行
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.probeEvery).Tag(StoreProbeJob).Do(s.ProbeDocumentStore)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	logger.Log.Info("Scheduler started", zap.Duration("storeProbeEvery", s.probeEvery))
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// ProbeDocumentStore 探测文档存储并更新 document_store_up
func (s *Scheduler) ProbeDocumentStore() bool {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		monitoring.SetDocumentStoreUp(false)
		logger.Log.Warn("Document store probe failed",
			zap.String("store", s.store.StoreName()),
			zap.Error(err))
		return false
	}
	monitoring.SetDocumentStoreUp(true)
	return true
}
