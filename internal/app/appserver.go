package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"liuproxy_pool/internal/service/web"
	"liuproxy_pool/internal/shared/logger"
	"liuproxy_pool/internal/shared/metrics"
	"liuproxy_pool/internal/shared/types"
	manager "liuproxy_pool/proxypool"
	"liuproxy_pool/proxypool/checker"
	"liuproxy_pool/proxypool/queue"
	"liuproxy_pool/proxypool/scraper"
	"liuproxy_pool/proxypool/store"
	"liuproxy_pool/proxypool/validator"
)

// AppServer is the application's main struct. New creates the shared queue and
// store and hands them to the scheduler, the checker and the query API.
type AppServer struct {
	cfg     *types.Config
	manager *manager.Manager
	hub     *web.Hub

	waitGroup sync.WaitGroup
}

// New 组装整个流水线。sourcesFile 为相对路径时相对于 configDir。
func New(cfg *types.Config, configDir string, reg prometheus.Registerer) (*AppServer, error) {
	sourcesPath := cfg.SourcesFile
	if !filepath.IsAbs(sourcesPath) {
		sourcesPath = filepath.Join(configDir, sourcesPath)
	}

	collector, err := scraper.NewCollector(
		sourcesPath,
		cfg.UserAgent,
		time.Duration(cfg.SourceTimeoutSeconds)*time.Second,
		time.Duration(cfg.SourceDelaySeconds)*time.Second,
	)
	if err != nil {
		return nil, err
	}

	q := queue.New()
	s := store.New()
	c := checker.New(q, s, validator.NewValidator(cfg.CheckerConf), cfg.ConnectionLimit)

	if reg != nil {
		err := metrics.RegisterPoolGauges(reg,
			func() float64 { return float64(q.Size()) },
			func() float64 { return float64(s.Len()) },
		)
		if err != nil {
			return nil, fmt.Errorf("failed to register pool gauges: %w", err)
		}
	}

	return &AppServer{
		cfg:     cfg,
		manager: manager.NewManager(cfg, collector, q, s, c),
		hub:     web.NewHub(),
	}, nil
}

// Run 启动所有后台循环并阻塞到 ctx 结束且所有组件退出。
func (s *AppServer) Run(ctx context.Context) error {
	l := logger.WithComponent("App")

	if err := web.StartServer(ctx, &s.waitGroup, s.cfg.WebConf, s.manager, s.hub); err != nil {
		return err
	}

	s.waitGroup.Add(2)
	go func() {
		defer s.waitGroup.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer s.waitGroup.Done()
		s.pushStatus(ctx)
	}()

	s.manager.Start(ctx)
	l.Info().Msg("Proxy pool running.")

	<-ctx.Done()
	l.Info().Msg("Shutdown signal received, stopping components...")
	s.manager.Wait()
	s.waitGroup.Wait()
	l.Info().Msg("All components stopped.")
	return nil
}

// pushStatus 定期把状态快照推送给 websocket 客户端。
func (s *AppServer) pushStatus(ctx context.Context) {
	interval := time.Duration(s.cfg.StatusPushSeconds) * time.Second
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.hub.ClientCount() > 0 {
				s.hub.BroadcastStatus(s.manager.Status())
			}
		}
	}
}
