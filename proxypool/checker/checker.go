// Package checker 持续从队列中成批取出候选，并发探测后更新结果存储。
package checker

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"liuproxy_pool/internal/shared/logger"
	"liuproxy_pool/internal/shared/metrics"
	"liuproxy_pool/proxypool/model"
	"liuproxy_pool/proxypool/queue"
	"liuproxy_pool/proxypool/store"
	"liuproxy_pool/proxypool/validator"
)

// Prober performs a single probe. *validator.Validator implements it.
type Prober interface {
	Probe(ctx context.Context, candidate string) validator.Result
}

// Checker 拥有探测并发上限，任何时刻在途探测数不超过 limit。
type Checker struct {
	queue  *queue.Queue
	store  *store.Store
	prober Prober
	limit  int
}

func New(q *queue.Queue, s *store.Store, prober Prober, limit int) *Checker {
	if limit <= 0 {
		limit = 1
	}
	return &Checker{queue: q, store: s, prober: prober, limit: limit}
}

// Run 循环执行：阻塞取一个候选，再非阻塞地尽量多取，整批探测完成后再取下一批。
// 只有 ctx 结束时才返回。
func (c *Checker) Run(ctx context.Context) error {
	l := logger.WithComponent("ProxyPool/Checker")
	l.Info().Int("connection_limit", c.limit).Msg("Checker started.")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.queue.Size() == 0 {
			l.Debug().Msg("Waiting for proxies to check...")
		}

		batch, err := c.nextBatch(ctx)
		if err != nil {
			l.Info().Msg("Checker stopped.")
			return err
		}
		c.CheckBatch(ctx, batch)
	}
}

func (c *Checker) nextBatch(ctx context.Context) ([]string, error) {
	first, err := c.queue.Get(ctx)
	if err != nil {
		return nil, err
	}
	batch := []string{first}

	extra := min(c.limit, c.queue.Size())
	for i := 0; i < extra; i++ {
		candidate, ok := c.queue.TryGet()
		if !ok {
			break
		}
		batch = append(batch, candidate)
	}
	return batch, nil
}

// CheckBatch probes every candidate in batch with at most limit probes in
// flight and returns once all of them are done.
func (c *Checker) CheckBatch(ctx context.Context, batch []string) {
	metrics.BatchSize.Observe(float64(len(batch)))

	var g errgroup.Group
	g.SetLimit(c.limit)
	for _, candidate := range batch {
		g.Go(func() error {
			c.apply(ctx, c.prober.Probe(ctx, candidate))
			return nil
		})
	}
	_ = g.Wait()
}

// apply 根据探测结果更新存储：成功则整体覆盖记录，失败则删除。
func (c *Checker) apply(ctx context.Context, res validator.Result) {
	l := logger.WithComponent("ProxyPool/Checker")
	metrics.ProbesTotal.WithLabelValues(res.Reason()).Inc()

	if errors.Is(res.Err, validator.ErrAborted) || (res.Err != nil && ctx.Err() != nil) {
		return
	}

	if !res.OK() {
		if c.store.Delete(res.Candidate) {
			l.Debug().Str("proxy", res.Candidate).Str("reason", res.Reason()).Err(res.Err).Msg("Proxy dropped.")
		}
		return
	}

	record, err := model.NewRecord(res.Candidate, res.LatencyMs())
	if err != nil {
		l.Warn().Err(err).Msg("Discarding malformed candidate.")
		c.store.Delete(res.Candidate)
		return
	}
	if !c.store.Set(res.Candidate, record) {
		l.Info().Str("proxy", res.Candidate).Int64("latency_ms", record.LatencyMs).Msg("Found OK proxy.")
	}
}
