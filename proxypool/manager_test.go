package manager

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liuproxy_pool/internal/shared/types"
	"liuproxy_pool/proxypool/checker"
	"liuproxy_pool/proxypool/model"
	"liuproxy_pool/proxypool/queue"
	"liuproxy_pool/proxypool/store"
	"liuproxy_pool/proxypool/validator"
)

type fakeSource struct {
	candidates []string
	calls      atomic.Int32
}

func (f *fakeSource) Collect(ctx context.Context) ([]string, error) {
	f.calls.Add(1)
	return f.candidates, nil
}

type okProber struct{}

func (okProber) Probe(ctx context.Context, candidate string) validator.Result {
	return validator.Result{Candidate: candidate, StatusCode: 200, Latency: 42 * time.Millisecond}
}

func newTestManager(t *testing.T, source Source) (*Manager, *queue.Queue, *store.Store) {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.ConnectionLimit = 100
	cfg.RequestTimeoutSeconds = 8
	q, s := queue.New(), store.New()
	c := checker.New(q, s, okProber{}, cfg.ConnectionLimit)
	m := NewManager(cfg, source, q, s, c)
	return m, q, s
}

func TestRunCycle_BacklogSkipsFetch(t *testing.T) {
	source := &fakeSource{candidates: []string{"1.1.1.1:80"}}
	m, q, _ := newTestManager(t, source)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	q.Put("9.9.9.9:9")
	wait := m.runCycle(context.Background())

	assert.Equal(t, 5*time.Second, wait)
	assert.Equal(t, int32(0), source.calls.Load())
	assert.Equal(t, 1, q.Size())
	assert.Equal(t, now.Add(5*time.Second), m.NextCheckAt())
}

func TestRunCycle_RefillEnqueuesKnownGoodFirst(t *testing.T) {
	source := &fakeSource{candidates: []string{"1.1.1.1:80", "2.2.2.2:80", "3.3.3.3:80"}}
	m, q, s := newTestManager(t, source)
	s.Set("3.3.3.3:80", model.ProxyRecord{Host: "3.3.3.3", Port: "80", LatencyMs: 10})
	s.Set("4.4.4.4:80", model.ProxyRecord{Host: "4.4.4.4", Port: "80", LatencyMs: 10})

	m.runCycle(context.Background())
	assert.Equal(t, int32(1), source.calls.Load())

	var got []string
	for {
		c, ok := q.TryGet()
		if !ok {
			break
		}
		got = append(got, c)
	}
	assert.Equal(t, []string{"3.3.3.3:80", "4.4.4.4:80", "1.1.1.1:80", "2.2.2.2:80"}, got)
}

func TestRunCycle_WaitFollowsDrainEstimate(t *testing.T) {
	candidates := make([]string, 0, 250)
	for i := 0; i < 250; i++ {
		candidates = append(candidates, "10.0.0.1:" + strconv.Itoa(1000+i))
	}
	m, _, _ := newTestManager(t, &fakeSource{candidates: candidates})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	wait := m.runCycle(context.Background())

	// 1.35 * 8s * 250 / 100 = 27s
	assert.InDelta(t, 27.0, wait.Seconds(), 1e-6)
	assert.Equal(t, now.Add(wait), m.NextCheckAt())
	assert.Equal(t, int64(27), m.Status().NextCheckIn)
	assert.NotEmpty(t, m.Status().LastCycleID)
}

func TestRunCycle_EmptyRefillWaitsBacklogInterval(t *testing.T) {
	m, _, _ := newTestManager(t, &fakeSource{})
	assert.Equal(t, 5*time.Second, m.runCycle(context.Background()))
}

func TestEstimateDrain(t *testing.T) {
	m, _, _ := newTestManager(t, &fakeSource{})
	assert.Zero(t, m.EstimateDrain(0))
	assert.InDelta(t, 0.108, m.EstimateDrain(1).Seconds(), 1e-9)
	assert.InDelta(t, 108.0, m.EstimateDrain(1000).Seconds(), 1e-6)
}

func TestStatus_FloorsAtZero(t *testing.T) {
	m, q, s := newTestManager(t, &fakeSource{})
	now := time.Now()
	m.now = func() time.Time { return now }
	m.setNextCheck(-10*time.Second, "")
	q.Put("1.1.1.1:80")
	s.Set("2.2.2.2:80", model.ProxyRecord{Host: "2.2.2.2", Port: "80"})

	st := m.Status()
	assert.Equal(t, Status{ProxiesInQueue: 1, ProxiesOk: 1, NextCheckIn: 0}, st)
}

func TestSchedulerLoop_StopsOnCancel(t *testing.T) {
	source := &fakeSource{}
	m, _, _ := newTestManager(t, source)

	var mu sync.Mutex
	var sleeps []time.Duration
	ctx, cancel := context.WithCancel(context.Background())
	m.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		sleeps = append(sleeps, d)
		n := len(sleeps)
		mu.Unlock()
		if n == 3 {
			cancel()
		}
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		m.schedulerLoop(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler loop did not stop")
	}
	assert.Equal(t, int32(3), source.calls.Load())
}

func TestManager_EndToEnd(t *testing.T) {
	source := &fakeSource{candidates: []string{"1.2.3.4:8080", "5.6.7.8:3128"}}
	m, _, s := newTestManager(t, source)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)

	require.Eventually(t, func() bool { return s.Len() == 2 }, 2*time.Second, 5*time.Millisecond)
	rec, err := m.RandomProxy()
	require.NoError(t, err)
	assert.Equal(t, int64(42), rec.LatencyMs)
	assert.Len(t, m.GetAllProxies(), 2)

	cancel()
	m.Wait()

	assert.True(t, m.DeleteProxy("1.2.3.4:8080"))
	assert.False(t, m.DeleteProxy("1.2.3.4:8080"))
	assert.Equal(t, 1, s.Len())
}
