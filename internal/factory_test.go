package internal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/vadiminshakov/chartsense/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		wantErr bool
	}{
		{level: "debug", enabled: zapcore.DebugLevel},
		{level: "INFO", enabled: zapcore.InfoLevel},
		{level: "warn", enabled: zapcore.WarnLevel},
		{level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := NewLogger(tt.level)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.enabled-1))
		})
	}
}

func TestNewPipeline(t *testing.T) {
	t.Run("with journal", func(t *testing.T) {
		cfg := config.Default()
		cfg.Journal.Dir = filepath.Join(t.TempDir(), "analyses")

		p, err := NewPipeline(cfg, nil, true)
		require.NoError(t, err)
		t.Cleanup(func() { _ = p.Close() })

		require.NotNil(t, p.Journal)
		assert.NotNil(t, p.Orchestrator)
		assert.NotNil(t, p.Chat)
		assert.Equal(t, cfg.LLM.VisionModel, p.Vision.Model())
		assert.Equal(t, cfg.LLM.ReasoningModel, p.Reasoning.Model())
	})

	t.Run("journal skipped", func(t *testing.T) {
		cfg := config.Default()
		cfg.Journal.Dir = filepath.Join(t.TempDir(), "unused")

		p, err := NewPipeline(cfg, nil, false)
		require.NoError(t, err)
		assert.Nil(t, p.Journal)
		assert.NoError(t, p.Close())
	})

	t.Run("journal disabled", func(t *testing.T) {
		cfg := config.Default()
		cfg.Journal.Enabled = false

		p, err := NewPipeline(cfg, nil, true)
		require.NoError(t, err)
		assert.Nil(t, p.Journal)
	})

	t.Run("validator uses configured floor", func(t *testing.T) {
		cfg := config.Default()
		cfg.Journal.Enabled = false
		cfg.Safety.ConfidenceFloor = 0.8

		p, err := NewPipeline(cfg, nil, true)
		require.NoError(t, err)

		res := p.Validator.Validate("Price structure suggests a range.", 0.7, false)
		assert.Contains(t, res.Categories(), "low_confidence")
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := NewPipeline(nil, nil, true)
		require.Error(t, err)
	})
}

func TestImageLimits(t *testing.T) {
	l := ImageLimits(config.Default().Image)
	assert.Equal(t, int64(5*1024*1024), l.MaxBytes)
	assert.Equal(t, 400, l.MinWidth)
	assert.Equal(t, 3000, l.MaxHeight)
}
