package scraper

import (
	"context"
	"fmt"
)

// Scraper 接口定义了从单个代理源抓取候选的行为。
type Scraper interface {
	// Scrape 下载并清洗代理源，返回 "host:port" 形式的候选，不做验证。
	Scrape(ctx context.Context) ([]string, error)

	// Name 返回抓取器的名称，用于日志记录。
	Name() string
}

// FetchError 表示单个代理源在本周期内抓取失败。
type FetchError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source %s: received non-200 status code (%d)", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
