package qss

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOptionsDefaults(t *testing.T) {
	cfg, err := resolveOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, 1e-6, cfg.relTol)
	assert.Equal(t, 1e-6, cfg.absTol)
	assert.Equal(t, 1e-12, cfg.dtMin)
	assert.Equal(t, 0.0, cfg.dtMax)
	assert.Equal(t, 1e-9, cfg.zTol)
	assert.True(t, cfg.inflectionSteps)
	assert.True(t, cfg.refine)
	assert.IsType(t, &NoOpLogger{}, cfg.logger)
}

func TestResolveOptionsAppliesOverrides(t *testing.T) {
	cfg, err := resolveOptions([]Option{
		WithRelTol(1e-3),
		WithAbsTol(1e-4),
		WithDtMin(0),
		WithDtMax(10),
		WithInflectionSteps(false),
		WithRefine(false),
		WithZTol(1e-6),
		WithDtND(1e-7),
	})
	require.NoError(t, err)
	assert.Equal(t, 1e-3, cfg.relTol)
	assert.Equal(t, 1e-4, cfg.absTol)
	assert.Equal(t, 10.0, cfg.dtMax)
	assert.False(t, cfg.inflectionSteps)
	assert.False(t, cfg.refine)
	assert.Equal(t, 1e-6, cfg.zTol)
	assert.Equal(t, 1e-7, cfg.dtND)
}

func TestResolveOptionsRejectsInvalidRelTol(t *testing.T) {
	_, err := resolveOptions([]Option{WithRelTol(0)})
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "RelTol", cfgErr.Field)
}

func TestResolveOptionsRejectsInvalidDtMax(t *testing.T) {
	_, err := resolveOptions([]Option{WithDtMax(-1)})
	require.Error(t, err)
}

func TestResolveOptionsRejectsNilLogger(t *testing.T) {
	_, err := resolveOptions([]Option{WithLogger(nil)})
	require.Error(t, err)
}

func TestWithWarnRateLimitsOverridesDefaults(t *testing.T) {
	rates := map[time.Duration]int{time.Second: 5}
	cfg, err := resolveOptions([]Option{WithWarnRateLimits(rates)})
	require.NoError(t, err)
	assert.Equal(t, rates, cfg.warnRateLimits)
}
