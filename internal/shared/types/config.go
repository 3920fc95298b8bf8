package types

import "time"

// CheckerConf 控制单个代理探测的方式和并发上限。
type CheckerConf struct {
	CanaryURL             string `ini:"canary_url"`
	CanaryMarker          string `ini:"canary_marker"`
	ConnectionLimit       int    `ini:"connection_limit"`
	RequestTimeoutSeconds int    `ini:"request_timeout_seconds"`
	UserAgent             string `ini:"user_agent"`
	BodyPrefixBytes       int    `ini:"body_prefix_bytes"`
}

// RequestTimeout returns the per-probe total timeout.
func (c CheckerConf) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// SchedulerConf 控制补货周期的节奏以及代理源列表。
type SchedulerConf struct {
	BacklogWaitSeconds   int     `ini:"backlog_wait_seconds"`
	SafetyFactor         float64 `ini:"safety_factor"`
	SourcesFile          string  `ini:"sources_file"`
	SourceDelaySeconds   int     `ini:"source_delay_seconds"`
	SourceTimeoutSeconds int     `ini:"source_timeout_seconds"`
}

// WebConf 包含查询 API 的监听与认证配置
type WebConf struct {
	Port              int    `ini:"port"`
	User              string `ini:"user"`
	Password          string `ini:"password"`
	StatusPushSeconds int    `ini:"status_push_seconds"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// Config 是进程的统一配置结构体
type Config struct {
	CheckerConf   `ini:"checker"`
	SchedulerConf `ini:"scheduler"`
	WebConf       `ini:"web"`
	LogConf       `ini:"log"`
}

const (
	DefaultCanaryURL = "http://online.nsmart.rs/sr/"
	DefaultMarker    = "nsmart"
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"
)

// DefaultConfig returns a Config with every field set, so that keys missing
// from the ini file keep a usable value.
func DefaultConfig() *Config {
	return &Config{
		CheckerConf: CheckerConf{
			CanaryURL:             DefaultCanaryURL,
			CanaryMarker:          DefaultMarker,
			ConnectionLimit:       512,
			RequestTimeoutSeconds: 8,
			UserAgent:             DefaultUserAgent,
			BodyPrefixBytes:       255,
		},
		SchedulerConf: SchedulerConf{
			BacklogWaitSeconds:   5,
			SafetyFactor:         1.35,
			SourcesFile:          "proxylist.json",
			SourceDelaySeconds:   2,
			SourceTimeoutSeconds: 20,
		},
		WebConf: WebConf{
			Port:              8000,
			StatusPushSeconds: 2,
		},
		LogConf: LogConf{
			Level: "info",
		},
	}
}
