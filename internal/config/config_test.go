package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, 10, cfg.Chunker.SentencesPerChunk)
	assert.Equal(t, 3, cfg.Chunker.OverlapSentences)
	assert.Equal(t, 1.5, cfg.Retrieval.DistanceThreshold)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.OpenAI.Model)
}

func TestVectorStoreEphemeral(t *testing.T) {
	assert.True(t, VectorStoreConfig{}.Ephemeral())
	assert.True(t, VectorStoreConfig{Type: "memory"}.Ephemeral())
	assert.False(t, VectorStoreConfig{Type: "qdrant"}.Ephemeral())
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
vector_store:
  type: qdrant
  qdrant:
    url: http://localhost:6333
embedder:
  type: openai
  openai:
    model: text-embedding-3-large
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "qdrant", cfg.VectorStore.Type)
	assert.Equal(t, "http://localhost:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 10, cfg.Chunker.SentencesPerChunk)
	assert.Equal(t, 1.5, cfg.Retrieval.DistanceThreshold)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := defaultConfig()
	cfg.Storage.Path = "/tmp/docchat.db"
	cfg.Retrieval.TopK = 8

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/docchat.db", loaded.Storage.Path)
	assert.Equal(t, 8, loaded.Retrieval.TopK)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
