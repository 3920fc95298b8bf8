package manager

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"liuproxy_pool/internal/shared/logger"
	"liuproxy_pool/internal/shared/metrics"
	"liuproxy_pool/internal/shared/types"
	"liuproxy_pool/proxypool/checker"
	"liuproxy_pool/proxypool/model"
	"liuproxy_pool/proxypool/queue"
	"liuproxy_pool/proxypool/store"
)

// Source 是候选代理的来源，返回去重后的 "host:port" 列表。
// *scraper.Collector 实现了该接口。
type Source interface {
	Collect(ctx context.Context) ([]string, error)
}

// Status 是对外暴露的遥测快照。
type Status struct {
	ProxiesInQueue int    `json:"proxiesInQueue"`
	ProxiesOk      int    `json:"proxiesOk"`
	NextCheckIn    int64  `json:"nextCheckIn"`
	LastCycleID    string `json:"lastCycleId,omitempty"`
}

// Manager 是代理池模块的总控制器：持有队列与结果存储，运行调度循环和检查器。
type Manager struct {
	backlogWait     time.Duration
	safetyFactor    float64
	requestTimeout  time.Duration
	connectionLimit int

	source  Source
	queue   *queue.Queue
	store   *store.Store
	checker *checker.Checker

	mu          sync.RWMutex
	nextCheckAt time.Time
	lastCycleID string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	wg sync.WaitGroup
}

// NewManager 创建管理器。队列与存储由调用方创建并共享给检查器。
func NewManager(cfg *types.Config, source Source, q *queue.Queue, s *store.Store, c *checker.Checker) *Manager {
	return &Manager{
		backlogWait:     time.Duration(cfg.BacklogWaitSeconds) * time.Second,
		safetyFactor:    cfg.SafetyFactor,
		requestTimeout:  cfg.RequestTimeout(),
		connectionLimit: cfg.ConnectionLimit,
		source:          source,
		queue:           q,
		store:           s,
		checker:         c,
		nextCheckAt:     time.Now(),
		now:             time.Now,
		sleep:           sleepContext,
	}
}

// Start 启动调度循环与检查器，两者都在 ctx 结束时退出。
func (m *Manager) Start(ctx context.Context) {
	l := logger.WithComponent("ProxyPool/Manager")
	l.Info().
		Dur("backlog_wait", m.backlogWait).
		Float64("safety_factor", m.safetyFactor).
		Int("connection_limit", m.connectionLimit).
		Msg("Manager starting...")

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.schedulerLoop(ctx)
	}()
	go func() {
		defer m.wg.Done()
		_ = m.checker.Run(ctx)
	}()
}

// Wait blocks until both loops started by Start have returned.
func (m *Manager) Wait() {
	m.wg.Wait()
	logger.Info().Msg("ProxyPool Manager gracefully stopped.")
}

// schedulerLoop 是自适应的补货循环：有积压时短暂等待，否则补货并按估算的耗时休眠。
func (m *Manager) schedulerLoop(ctx context.Context) {
	for ctx.Err() == nil {
		wait := m.runCycle(ctx)
		if err := m.sleep(ctx, wait); err != nil {
			return
		}
	}
}

// runCycle 执行一次调度迭代，返回距离下一次迭代的等待时间。
func (m *Manager) runCycle(ctx context.Context) time.Duration {
	l := logger.WithComponent("ProxyPool/Scheduler")

	if size := m.queue.Size(); size > 0 {
		metrics.RefillCyclesTotal.WithLabelValues("backlog").Inc()
		m.setNextCheck(m.backlogWait, "")
		l.Debug().Int("queue_size", size).Msg("Backlog still being checked, skipping refill.")
		return m.backlogWait
	}

	cycleID := uuid.NewString()
	metrics.RefillCyclesTotal.WithLabelValues("refill").Inc()

	fresh, err := m.source.Collect(ctx)
	if err != nil && ctx.Err() != nil {
		return 0
	}

	// 先放入已知可用的代理，使其先于新候选被复验
	known := m.store.Keys()
	m.queue.PutAll(known)
	metrics.CandidatesEnqueuedTotal.WithLabelValues("revalidate").Add(float64(len(known)))

	newOnes := make([]string, 0, len(fresh))
	for _, candidate := range fresh {
		// 已在存储中的候选上面已经入队，这里跳过，所以队列长度按去重后计算
		if _, ok := m.store.Get(candidate); ok {
			continue
		}
		newOnes = append(newOnes, candidate)
	}
	m.queue.PutAll(newOnes)
	metrics.CandidatesEnqueuedTotal.WithLabelValues("source").Add(float64(len(newOnes)))

	queueSize := m.queue.Size()
	wait := m.EstimateDrain(queueSize)
	if queueSize == 0 {
		// 没有任何候选时不做忙等
		wait = m.backlogWait
	}
	m.setNextCheck(wait, cycleID)

	l.Info().
		Str("cycle_id", cycleID).
		Int("revalidate", len(known)).
		Int("fresh", len(newOnes)).
		Int("queue_size", queueSize).
		Dur("next_update_in", wait.Round(time.Second)).
		Msg("Checking proxies...")
	return wait
}

// EstimateDrain 估算检查器按当前并发与超时清空 n 个候选所需时间，并乘以安全系数。
func (m *Manager) EstimateDrain(n int) time.Duration {
	if n <= 0 || m.connectionLimit <= 0 {
		return 0
	}
	seconds := m.safetyFactor * m.requestTimeout.Seconds() * float64(n) / float64(m.connectionLimit)
	return time.Duration(seconds * float64(time.Second))
}

func (m *Manager) setNextCheck(in time.Duration, cycleID string) {
	m.mu.Lock()
	m.nextCheckAt = m.now().Add(in)
	if cycleID != "" {
		m.lastCycleID = cycleID
	}
	m.mu.Unlock()
}

// NextCheckAt returns the instant the scheduler currently projects for its next cycle.
func (m *Manager) NextCheckAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextCheckAt
}

// Status returns queue size, known-good count and whole seconds until the next cycle.
func (m *Manager) Status() Status {
	m.mu.RLock()
	nextCheckAt, cycleID := m.nextCheckAt, m.lastCycleID
	m.mu.RUnlock()

	next := int64(math.Round(nextCheckAt.Sub(m.now()).Seconds()))
	if next < 0 {
		next = 0
	}
	return Status{
		ProxiesInQueue: m.queue.Size(),
		ProxiesOk:      m.store.Len(),
		NextCheckIn:    next,
		LastCycleID:    cycleID,
	}
}

// GetAllProxies 返回当前所有可用代理的快照。
func (m *Manager) GetAllProxies() []model.ProxyRecord {
	return m.store.Records()
}

// RandomProxy returns one known-good proxy, or store.ErrEmpty.
func (m *Manager) RandomProxy() (model.ProxyRecord, error) {
	return m.store.Random()
}

// DeleteProxy 从存储中移除候选，不存在时为空操作。
func (m *Manager) DeleteProxy(candidate string) bool {
	removed := m.store.Delete(candidate)
	if removed {
		l := logger.WithComponent("ProxyPool/Manager")
		l.Info().Str("proxy", candidate).Msg("Proxy deleted by request.")
	}
	return removed
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
