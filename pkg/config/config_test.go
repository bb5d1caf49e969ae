package config_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kortexhq/kortex/pkg/config"
)

func TestLoadAppliesDefaults(t *testing.T) {
	viper.Reset()
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "badger", cfg.GraphStore.Driver)
	assert.Equal(t, 1536, cfg.GraphStore.VectorDim)
	assert.Equal(t, 10, cfg.Queue.MaxInflightEpisodes)
	assert.Equal(t, 5, cfg.LLM.RetryMaxAttempt)
}

func TestLoadEnvOverridesAPIKey(t *testing.T) {
	viper.Reset()
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
}
