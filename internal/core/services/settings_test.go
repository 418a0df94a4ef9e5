package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attesta-labs/attesta-cli/internal/adapters/driven/storage/memory"
	"github.com/attesta-labs/attesta-cli/internal/core/domain"
)

func TestSettingsService_GetDefaults(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := svc.Get()
	require.NoError(t, err)

	assert.False(t, settings.Embedding.IsConfigured())
	assert.False(t, settings.LLM.IsConfigured())
	assert.Equal(t, 2000, settings.Chunking.ChunkSize)
	assert.Equal(t, 300, settings.Chunking.Overlap)
	assert.Equal(t, 500, settings.Chunking.MaxChunks)
	assert.Equal(t, 5, settings.Check.TopK)
	assert.Equal(t, 3, settings.Check.BatchSize)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	svc := NewSettingsService(store, nil)

	settings, err := svc.Get()
	require.NoError(t, err)
	settings.Chunking.ChunkSize = 1500
	settings.Check.TopK = 8
	require.NoError(t, svc.Save(settings))

	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 1500, got.Chunking.ChunkSize)
	assert.Equal(t, 8, got.Check.TopK)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, svc.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
	assert.True(t, settings.Embedding.IsConfigured())
}

func TestSettingsService_SetEmbeddingProviderRequiresKey(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	err := svc.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "")
	assert.ErrorContains(t, err, "API key required")
}

func TestSettingsService_SetEmbeddingProviderUnsupported(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	err := svc.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "key")
	assert.ErrorContains(t, err, "does not support embeddings")
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, svc.SetLLMProvider(domain.AIProviderOpenAI, "", "sk-test"))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", settings.LLM.Model)
	assert.Empty(t, settings.LLM.BaseURL)
	assert.True(t, settings.LLM.IsConfigured())
}

func TestSettingsService_SetLLMProviderCustomModel(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, svc.SetLLMProvider(domain.AIProviderOllama, "mistral", ""))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "mistral", settings.LLM.Model)
}

func TestSettingsService_InvalidProviderRejected(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Error(t, svc.SetLLMProvider("bogus", "", ""))
	assert.Error(t, svc.SetEmbeddingProvider("bogus", "", ""))
}
