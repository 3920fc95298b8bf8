package validator

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"liuproxy_pool/internal/shared/types"
)

var (
	// ErrBadStatus means the canary answered with something other than 200 or 302.
	ErrBadStatus = errors.New("unexpected status code")
	// ErrMarkerMissing means the body prefix did not contain the canary marker.
	ErrMarkerMissing = errors.New("canary marker not found")
	// ErrTimeout means the probe exceeded the request timeout.
	ErrTimeout = errors.New("probe timed out")
	// ErrTransport covers dial failures, proxy refusals and broken responses.
	ErrTransport = errors.New("transport error")
	// ErrAborted means the caller's context ended before the probe finished.
	// It says nothing about the proxy itself.
	ErrAborted = errors.New("probe aborted")
)

// Result is the outcome of one probe. Err is nil on success.
type Result struct {
	Candidate  string
	StatusCode int
	Latency    time.Duration
	Err        error
}

func (r Result) OK() bool { return r.Err == nil }

// LatencyMs rounds the measured latency to whole milliseconds.
func (r Result) LatencyMs() int64 {
	return r.Latency.Round(time.Millisecond).Milliseconds()
}

// Reason returns a short label for the failure cause, or "ok".
func (r Result) Reason() string {
	switch {
	case r.Err == nil:
		return "ok"
	case errors.Is(r.Err, ErrBadStatus):
		return "status"
	case errors.Is(r.Err, ErrMarkerMissing):
		return "marker"
	case errors.Is(r.Err, ErrTimeout):
		return "timeout"
	case errors.Is(r.Err, ErrAborted):
		return "aborted"
	default:
		return "transport"
	}
}

// Validator probes candidates by fetching the canary URL through them as
// plain HTTP proxies.
type Validator struct {
	canaryURL  string
	marker     []byte
	userAgent  string
	timeout    time.Duration
	prefixSize int64
	dialer     *net.Dialer
	tlsConfig  *tls.Config
}

func NewValidator(cfg types.CheckerConf) *Validator {
	prefix := cfg.BodyPrefixBytes
	if prefix <= 0 {
		prefix = 255
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = types.DefaultUserAgent
	}
	return &Validator{
		canaryURL:  cfg.CanaryURL,
		marker:     []byte(cfg.CanaryMarker),
		userAgent:  userAgent,
		timeout:    cfg.RequestTimeout(),
		prefixSize: int64(prefix),
		dialer: &net.Dialer{
			Timeout:   cfg.RequestTimeout(),
			KeepAlive: -1,
		},
		tlsConfig: &tls.Config{InsecureSkipVerify: true},
	}
}

// Probe fetches the canary through candidate and classifies the outcome.
// The request is bounded by the configured timeout and by ctx.
func (v *Validator) Probe(ctx context.Context, candidate string) Result {
	res := Result{Candidate: candidate}

	proxyURL, err := url.Parse("http://" + candidate)
	if err != nil {
		res.Err = fmt.Errorf("%w: invalid proxy address: %v", ErrTransport, err)
		return res
	}

	// 每个探测使用独立的 Transport，避免不同代理之间复用连接。
	transport := &http.Transport{
		Proxy:                 http.ProxyURL(proxyURL),
		DialContext:           v.dialer.DialContext,
		TLSClientConfig:       v.tlsConfig,
		DisableKeepAlives:     true,
		TLSHandshakeTimeout:   v.timeout,
		ResponseHeaderTimeout: v.timeout,
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   v.timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	reqCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, v.canaryURL, nil)
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrTransport, err)
		return res
	}
	req.Header.Set("User-Agent", v.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		res.Err = v.classify(ctx, err)
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusFound {
		res.Err = fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
		return res
	}

	prefix, err := io.ReadAll(io.LimitReader(resp.Body, v.prefixSize))
	if err != nil {
		res.Err = v.classify(ctx, err)
		return res
	}
	if !bytes.Contains(prefix, v.marker) {
		res.Err = ErrMarkerMissing
		return res
	}

	res.Latency = time.Since(start)
	return res
}

// classify maps a transport level error onto the sentinel causes.
func (v *Validator) classify(parent context.Context, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("%w: %v", ErrAborted, parent.Err())
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}
