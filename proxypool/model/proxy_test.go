package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	r, err := NewRecord("1.2.3.4:8080", 120)
	require.NoError(t, err)
	assert.Equal(t, ProxyRecord{Host: "1.2.3.4", Port: "8080", LatencyMs: 120}, r)
	assert.Equal(t, "1.2.3.4:8080", r.Candidate())
}

func TestNewRecord_ClampsNegativeLatency(t *testing.T) {
	r, err := NewRecord("1.2.3.4:8080", -3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), r.LatencyMs)
}

func TestSplitCandidate_Invalid(t *testing.T) {
	for _, c := range []string{"", "1.2.3.4", ":8080", "1.2.3.4:http", "a:b:c"} {
		_, _, err := SplitCandidate(c)
		assert.Error(t, err, c)
	}
}
