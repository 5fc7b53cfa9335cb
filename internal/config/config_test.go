package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoFileOrFlags(t *testing.T) {
	cfg, err := Load("/nonexistent/path/matchengine.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 10, cfg.Workers)
}

func TestLoad_FlagsOverrideDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--port=7000", "--workers=3"}))

	cfg, err := Load("/nonexistent/path/matchengine.yaml", fs)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "localhost", cfg.Host)
}
