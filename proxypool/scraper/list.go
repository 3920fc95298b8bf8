package scraper

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"liuproxy_pool/internal/shared/logger"
)

const maxListBytes = 16 << 20

// ListScraper 下载一个代理列表 URL。纯文本按行解析，HTML 页面按表格行解析。
type ListScraper struct {
	url       string
	userAgent string
	client    *http.Client
}

// NewListScraper creates a scraper for one proxy list URL.
func NewListScraper(url, userAgent string, timeout time.Duration) *ListScraper {
	return &ListScraper{
		url:       url,
		userAgent: userAgent,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *ListScraper) Name() string {
	return s.url
}

func (s *ListScraper) Scrape(ctx context.Context) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Scraper")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &FetchError{Source: s.Name(), Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: s.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Source: s.Name(), StatusCode: resp.StatusCode}
	}

	body := io.LimitReader(resp.Body, maxListBytes)
	var lines []string
	if isHTML(resp.Header.Get("Content-Type")) {
		lines, err = tableLines(body)
	} else {
		lines, err = textLines(body)
	}
	if err != nil {
		return nil, &FetchError{Source: s.Name(), Err: err}
	}

	candidates := CleanLines(lines)
	l.Debug().Str("source", s.Name()).Int("lines", len(lines)).Int("count", len(candidates)).Msg("Scrape finished.")
	return candidates, nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func textLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read list body: %w", err)
	}
	return lines, nil
}

// tableLines 取每个表格行的前两个单元格拼成 "ip:port"，其余文本按行保留，
// 以兼容把列表包在 <pre> 里的页面。
func tableLines(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var lines []string
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		ip := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		if ip == "" || port == "" {
			return
		}
		lines = append(lines, ip+":"+port)
	})

	doc.Find("pre, textarea").Each(func(_ int, block *goquery.Selection) {
		lines = append(lines, strings.Split(block.Text(), "\n")...)
	})
	return lines, nil
}
