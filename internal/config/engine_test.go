package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEngineConfig(t *testing.T) {
	c := DefaultEngineConfig()

	assert.InDelta(t, 0.85, c.MergeThreshold, 1e-6)
	assert.InDelta(t, 0.80, c.DiscussedThreshold, 1e-6)
	assert.Equal(t, 5, c.TopK)
	assert.Equal(t, 30*time.Minute, c.LinkOffset)
	assert.Equal(t, 5, c.MaxDispatchAttempts)
	require.NoError(t, c.Validate())
}

func TestEngineConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *EngineConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *EngineConfig) {}},
		{name: "discussed equal to merge", mutate: func(c *EngineConfig) { c.DiscussedThreshold = c.MergeThreshold }},
		{name: "discussed above merge", mutate: func(c *EngineConfig) { c.DiscussedThreshold = 0.9 }, wantErr: true},
		{name: "merge above one", mutate: func(c *EngineConfig) { c.MergeThreshold = 1.2 }, wantErr: true},
		{name: "zero top-k", mutate: func(c *EngineConfig) { c.TopK = 0 }, wantErr: true},
		{name: "zero attempts", mutate: func(c *EngineConfig) { c.MaxDispatchAttempts = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultEngineConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEngineConfig_FromEnv(t *testing.T) {
	t.Setenv("MEMO_MERGE_THRESHOLD", "0.9")
	t.Setenv("MEMO_LINK_OFFSET", "15m")

	c := NewEngineConfig(t.Context())
	assert.InDelta(t, 0.9, c.MergeThreshold, 1e-6)
	assert.Equal(t, 15*time.Minute, c.LinkOffset)
}
