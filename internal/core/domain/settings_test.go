package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAIProvider_IsValid tests provider recognition
func TestAIProvider_IsValid(t *testing.T) {
	assert.True(t, AIProviderOllama.IsValid())
	assert.True(t, AIProviderOpenAI.IsValid())
	assert.True(t, AIProviderAnthropic.IsValid())
	assert.False(t, AIProvider("gemini").IsValid())
	assert.False(t, AIProvider("").IsValid())
}

// TestAIProvider_RequiresAPIKey tests key requirements per provider
func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
}

// TestEmbeddingSettings_IsConfigured tests embedding configuration detection
func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.False(t, EmbeddingSettings{}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
}

// TestLLMSettings_IsConfigured tests LLM configuration detection
func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.False(t, LLMSettings{}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderAnthropic}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "key"}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
}

// TestDefaultAppSettings tests that defaults keep the pipeline functional
func TestDefaultAppSettings(t *testing.T) {
	settings := DefaultAppSettings()

	// AI providers unconfigured by default - pipeline degrades gracefully
	assert.False(t, settings.Embedding.IsConfigured())
	assert.False(t, settings.LLM.IsConfigured())

	assert.Equal(t, 2000, settings.Chunking.ChunkSize)
	assert.Equal(t, 300, settings.Chunking.Overlap)
	assert.Equal(t, 500, settings.Chunking.MaxChunks)
	assert.Equal(t, 5, settings.Check.TopK)
	assert.Equal(t, 3, settings.Check.BatchSize)
}
