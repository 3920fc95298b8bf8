package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanLine(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1.2.3.4:8080", "1.2.3.4:8080", true},
		{" 1.2.3.4 : 8080 \r", "1.2.3.4:8080", true},
		{"1.2.3.4:8080:HTTP", "1.2.3.4:8080", true},
		{"http:1.2.3.4:3128", "1.2.3.4:3128", true},
		{"0.0.0.0:80", "", false},
		{"1.2.3.4", "", false},
		{"", "", false},
		{"host:port", "", false},
		{"1.2.3.4:8080:US1", "", false},
		{"1.2.3.4:99999", "", false},
		{"1.2.3.4:0", "", false},
		{"1.2.3.4:80a", "", false},
		{"1.2.3.4:+80", "", false},
	}
	for _, tc := range cases {
		got, ok := CleanLine(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

// 清洗结果再清洗一次应保持不变。
func TestCleanLine_FixedPoint(t *testing.T) {
	inputs := []string{
		"1.2.3.4:8080", " 5.6.7.8 :3128", "socks:9.9.9.9:1080:anon", "a1:22", "0.0.0.0:1",
		"10.0.0.1:00080", "junk", "1:2:3",
	}
	for _, in := range inputs {
		once, ok := CleanLine(in)
		if !ok {
			continue
		}
		twice, ok := CleanLine(once)
		assert.True(t, ok, in)
		assert.Equal(t, once, twice, in)
	}
}

func TestCleanLines_Dedup(t *testing.T) {
	got := CleanLines([]string{"1.2.3.4:80", "bad", "5.6.7.8:81", "1.2.3.4:80", "0.0.0.0:80"})
	assert.Equal(t, []string{"1.2.3.4:80", "5.6.7.8:81"}, got)
}
