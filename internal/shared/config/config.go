package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
	"liuproxy_pool/internal/shared/types"
)

// ErrInvalidConfig 标记所有启动期配置错误，调用方应将其视为致命错误。
var ErrInvalidConfig = errors.New("invalid config")

// LoadIni 加载 pool.ini 到 cfg 中。cfg 应当预先填好默认值，文件中缺失的键保持不变。
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return err
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return err
	}
	overrideFromEnvString(&cfg.CheckerConf.CanaryURL, "CANARY_URL")
	overrideFromEnvInt(&cfg.CheckerConf.ConnectionLimit, "CONNECTION_LIMIT")
	overrideFromEnvInt(&cfg.CheckerConf.RequestTimeoutSeconds, "REQUEST_TIMEOUT_SECONDS")
	overrideFromEnvInt(&cfg.WebConf.Port, "WEB_PORT")
	overrideFromEnvString(&cfg.LogConf.Level, "LOG_LEVEL")
	return nil
}

// Validate checks the values the pipeline cannot run without.
func Validate(cfg *types.Config) error {
	u, err := url.Parse(cfg.CanaryURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: canary_url %q must be an absolute http(s) URL", ErrInvalidConfig, cfg.CanaryURL)
	}
	if strings.TrimSpace(cfg.CanaryMarker) == "" {
		return fmt.Errorf("%w: canary_marker is empty", ErrInvalidConfig)
	}
	if cfg.ConnectionLimit <= 0 {
		return fmt.Errorf("%w: connection_limit must be positive, got %d", ErrInvalidConfig, cfg.ConnectionLimit)
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: request_timeout_seconds must be positive, got %d", ErrInvalidConfig, cfg.RequestTimeoutSeconds)
	}
	if cfg.BodyPrefixBytes < len(cfg.CanaryMarker) {
		return fmt.Errorf("%w: body_prefix_bytes %d cannot hold the marker", ErrInvalidConfig, cfg.BodyPrefixBytes)
	}
	if cfg.SafetyFactor <= 0 {
		return fmt.Errorf("%w: safety_factor must be positive, got %v", ErrInvalidConfig, cfg.SafetyFactor)
	}
	if cfg.BacklogWaitSeconds <= 0 {
		return fmt.Errorf("%w: backlog_wait_seconds must be positive, got %d", ErrInvalidConfig, cfg.BacklogWaitSeconds)
	}
	if cfg.SourceDelaySeconds < 0 || cfg.SourceTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: source delay/timeout out of range", ErrInvalidConfig)
	}
	return nil
}

// LoadSourceURLs 读取代理源列表文件 (JSON 字符串数组)。
func LoadSourceURLs(fileName string) ([]string, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sources file: %v", ErrInvalidConfig, err)
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal %s: %v", ErrInvalidConfig, fileName, err)
	}

	cleaned := make([]string, 0, len(urls))
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			return nil, fmt.Errorf("%w: bad source url %q: %v", ErrInvalidConfig, raw, err)
		}
		cleaned = append(cleaned, raw)
	}
	return cleaned, nil
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
