package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"liuproxy_pool/internal/shared/config"
	"liuproxy_pool/internal/shared/logger"
	"liuproxy_pool/internal/shared/metrics"
)

// Collector 是调度器使用的候选来源：每个周期重新读取代理源列表文件，
// 依次抓取各个源，每个源结束后空闲 delay 再抓取下一个。
type Collector struct {
	sourcesPath string
	userAgent   string
	timeout     time.Duration
	delay       time.Duration

	// newScraper 可在测试中替换
	newScraper func(url string) Scraper

	mu       sync.Mutex
	lastURLs []string
}

// NewCollector loads the sources file once so that a broken file is reported
// at startup.
func NewCollector(sourcesPath, userAgent string, timeout, delay time.Duration) (*Collector, error) {
	urls, err := config.LoadSourceURLs(sourcesPath)
	if err != nil {
		return nil, err
	}
	c := &Collector{
		sourcesPath: sourcesPath,
		userAgent:   userAgent,
		timeout:     timeout,
		delay:       delay,
		lastURLs:    urls,
	}
	c.newScraper = func(url string) Scraper {
		return NewListScraper(url, c.userAgent, c.timeout)
	}
	return c, nil
}

// sourceURLs 重新读取源列表；读取失败时沿用上一次成功的结果。
func (c *Collector) sourceURLs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	urls, err := config.LoadSourceURLs(c.sourcesPath)
	if err != nil {
		l := logger.WithComponent("ProxyPool/Scraper")
		l.Warn().Err(err).Str("path", c.sourcesPath).
			Int("previous", len(c.lastURLs)).Msg("Failed to reload sources file, keeping previous list.")
		return c.lastURLs
	}
	c.lastURLs = urls
	return urls
}

// Collect 抓取所有源并返回去重后的候选。单个源失败只记录日志。
// 只有 ctx 被取消时才返回错误。
func (c *Collector) Collect(ctx context.Context) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	urls := c.sourceURLs()
	l.Info().Int("sources", len(urls)).Msg("Updating proxy list...")

	seen := make(map[string]struct{})
	candidates := make([]string, 0)
	for i, url := range urls {
		// 上一个源处理完之后再等待 delay
		if i > 0 {
			if err := waitDelay(ctx, c.delay); err != nil {
				return candidates, err
			}
		}

		found, err := c.newScraper(url).Scrape(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return candidates, ctx.Err()
			}
			metrics.SourceErrorsTotal.Inc()
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
				l.Warn().Str("source", url).Int("status_code", fetchErr.StatusCode).Msg("Source skipped.")
			} else {
				l.Warn().Err(err).Str("source", url).Msg("Error getting proxy list.")
			}
			continue
		}

		added := 0
		for _, candidate := range found {
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}
			candidates = append(candidates, candidate)
			added++
		}
		l.Info().Str("source", url).Int("count", len(found)).Int("new", added).Msg("Got proxy list.")
	}

	return candidates, nil
}

func waitDelay(ctx context.Context, d time.Duration) error {
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
