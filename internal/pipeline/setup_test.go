package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhnan/Long-text-evaluation/internal/config"
	"github.com/bhnan/Long-text-evaluation/internal/doctree"
)

func TestBuild(t *testing.T) {
	cfg := config.Config{
		LLMProvider:    "mock",
		RateLimitRPM:   60,
		RateLimitTPM:   6000,
		LLMMaxAttempts: 2,
		Granularity:    doctree.BySubsection,
		CheckpointDir:  "cp",
	}
	st, err := Build(cfg, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "mock", st.Gateway.Model())
	assert.Equal(t, 60, st.Limiter.Stats().RPM)
	assert.Equal(t, doctree.BySubsection, st.Runner.Granularity)
	assert.Len(t, st.Runner.Rubric.Criteria, 5)

	cfg.RubricFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = Build(cfg, discardLogger())
	assert.Error(t, err)

	cfg.RubricFile = ""
	cfg.LLMProvider = "nope"
	_, err = Build(cfg, discardLogger())
	assert.Error(t, err)
}
