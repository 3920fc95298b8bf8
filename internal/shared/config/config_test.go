package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liuproxy_pool/internal/shared/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadIni_KeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeFile(t, "pool.ini", `
[checker]
connection_limit = 64

[web]
port = 9000
`)
	cfg := types.DefaultConfig()
	require.NoError(t, LoadIni(cfg, path))

	assert.Equal(t, 64, cfg.ConnectionLimit)
	assert.Equal(t, 9000, cfg.WebConf.Port)
	assert.Equal(t, 8, cfg.RequestTimeoutSeconds)
	assert.Equal(t, types.DefaultCanaryURL, cfg.CanaryURL)
	assert.InDelta(t, 1.35, cfg.SafetyFactor, 1e-9)
	require.NoError(t, Validate(cfg))
}

func TestLoadIni_EnvOverride(t *testing.T) {
	path := writeFile(t, "pool.ini", "[checker]\nconnection_limit = 64\n")
	t.Setenv("CONNECTION_LIMIT", "16")
	t.Setenv("CANARY_URL", "http://example.com/")

	cfg := types.DefaultConfig()
	require.NoError(t, LoadIni(cfg, path))
	assert.Equal(t, 16, cfg.ConnectionLimit)
	assert.Equal(t, "http://example.com/", cfg.CanaryURL)
}

func TestLoadIni_MissingFile(t *testing.T) {
	err := LoadIni(types.DefaultConfig(), filepath.Join(t.TempDir(), "nope.ini"))
	require.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*types.Config){
		"relative canary": func(c *types.Config) { c.CanaryURL = "/sr/" },
		"ftp canary":      func(c *types.Config) { c.CanaryURL = "ftp://example.com/" },
		"empty marker":    func(c *types.Config) { c.CanaryMarker = " " },
		"zero limit":      func(c *types.Config) { c.ConnectionLimit = 0 },
		"zero timeout":    func(c *types.Config) { c.RequestTimeoutSeconds = 0 },
		"tiny prefix":     func(c *types.Config) { c.BodyPrefixBytes = 2 },
		"zero factor":     func(c *types.Config) { c.SafetyFactor = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := types.DefaultConfig()
			mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestLoadSourceURLs(t *testing.T) {
	path := writeFile(t, "proxylist.json", `["https://a.example/list.txt", "  ", "http://b.example/x"]`)
	urls, err := LoadSourceURLs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/list.txt", "http://b.example/x"}, urls)
}

func TestLoadSourceURLs_Errors(t *testing.T) {
	_, err := LoadSourceURLs(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	bad := writeFile(t, "bad.json", `{"not": "an array"}`)
	_, err = LoadSourceURLs(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	relative := writeFile(t, "rel.json", `["not a url"]`)
	_, err = LoadSourceURLs(relative)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
