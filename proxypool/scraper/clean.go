package scraper

import (
	"strconv"
	"strings"
	"unicode"
)

// CleanLine 把一行原始文本清洗为 "host:port"。
// 以冒号切分后只保留含数字的片段，必须恰好剩下两段，且 host 不能是 0.0.0.0。
func CleanLine(line string) (string, bool) {
	if !strings.Contains(line, ":") {
		return "", false
	}

	kept := make([]string, 0, 2)
	for _, part := range strings.Split(line, ":") {
		if !strings.ContainsFunc(part, unicode.IsDigit) {
			continue
		}
		kept = append(kept, strings.TrimSpace(part))
		if len(kept) > 2 {
			return "", false
		}
	}
	if len(kept) != 2 {
		return "", false
	}

	host, port := kept[0], kept[1]
	if host == "0.0.0.0" {
		return "", false
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 || strings.HasPrefix(port, "+") {
		return "", false
	}
	return host + ":" + port, true
}

// CleanLines cleans every line and drops duplicates, keeping first-seen order.
func CleanLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		candidate, ok := CleanLine(line)
		if !ok {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	return out
}
