package model

import (
	"fmt"
	"net"
	"strconv"
)

// ProxyRecord 是一次成功探测的结果 (ValidationRecord)。
// 记录只会被整体替换，不会原地修改。JSON 字段名与对外 API 保持一致。
type ProxyRecord struct {
	Host      string `json:"ip"`
	Port      string `json:"port"`
	LatencyMs int64  `json:"latency"`
}

// Candidate 返回记录对应的 "host:port" 键。
func (r ProxyRecord) Candidate() string {
	return r.Host + ":" + r.Port
}

// SplitCandidate 将 "host:port" 拆分为 host 与 port。
func SplitCandidate(candidate string) (host, port string, err error) {
	host, port, err = net.SplitHostPort(candidate)
	if err != nil {
		return "", "", fmt.Errorf("invalid candidate %q: %w", candidate, err)
	}
	if host == "" {
		return "", "", fmt.Errorf("invalid candidate %q: empty host", candidate)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", "", fmt.Errorf("invalid candidate %q: port is not numeric", candidate)
	}
	return host, port, nil
}

// NewRecord builds the record stored for a candidate that passed its probe.
func NewRecord(candidate string, latencyMs int64) (ProxyRecord, error) {
	host, port, err := SplitCandidate(candidate)
	if err != nil {
		return ProxyRecord{}, err
	}
	if latencyMs < 0 {
		latencyMs = 0
	}
	return ProxyRecord{Host: host, Port: port, LatencyMs: latencyMs}, nil
}
