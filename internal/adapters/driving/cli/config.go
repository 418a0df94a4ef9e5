package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
)

var (
	configModel  string
	configAPIKey string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage AI provider configuration",
	Long: `View and configure the embedding and LLM providers.

Both providers are optional: without an embedding provider retrieval
falls back to keyword matching, and without an LLM provider every
criterion is answered UNKNOWN.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetEmbeddingCmd = &cobra.Command{
	Use:   "set-embedding [provider]",
	Short: "Configure the embedding provider",
	Long: `Configure the embedding provider used for semantic retrieval.

Supported providers: ollama, openai. Providers that require an API key
prompt for one when --api-key is not given.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigSetEmbedding,
}

var configSetLLMCmd = &cobra.Command{
	Use:   "set-llm [provider]",
	Short: "Configure the LLM provider",
	Long: `Configure the completion provider used to evaluate criteria.

Supported providers: ollama, openai, anthropic. Providers that require
an API key prompt for one when --api-key is not given.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigSetLLM,
}

func init() {
	for _, c := range []*cobra.Command{configSetEmbeddingCmd, configSetLLMCmd} {
		c.Flags().StringVarP(&configModel, "model", "m", "", "model name (defaults per provider)")
		c.Flags().StringVar(&configAPIKey, "api-key", "", "API key (prompted when required and not given)")
	}

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetEmbeddingCmd)
	configCmd.AddCommand(configSetLLMCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	cmd.Println()

	cmd.Println("[Embedding]")
	printProviderSettings(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[LLM]")
	printProviderSettings(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Chunk size: %d\n", settings.Chunking.ChunkSize)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	cmd.Printf("  Max chunks: %d\n", settings.Chunking.MaxChunks)
	cmd.Println()

	cmd.Println("[Check]")
	cmd.Printf("  Top K: %d\n", settings.Check.TopK)
	cmd.Printf("  Batch size: %d\n", settings.Check.BatchSize)

	return nil
}

func printProviderSettings(
	cmd *cobra.Command,
	provider domain.AIProvider,
	model, baseURL, apiKey string,
	configured bool,
) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runConfigSetEmbedding(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	provider := domain.AIProvider(strings.ToLower(args[0]))
	apiKey, err := resolveAPIKey(cmd, provider)
	if err != nil {
		return err
	}

	if err := settingsService.SetEmbeddingProvider(provider, configModel, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	settings, err := settingsService.Get()
	if err != nil {
		return err
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n",
		provider.Description(), settings.Embedding.Model)
	return nil
}

func runConfigSetLLM(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	provider := domain.AIProvider(strings.ToLower(args[0]))
	apiKey, err := resolveAPIKey(cmd, provider)
	if err != nil {
		return err
	}

	if err := settingsService.SetLLMProvider(provider, configModel, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	settings, err := settingsService.Get()
	if err != nil {
		return err
	}
	cmd.Printf("LLM provider configured: %s (%s)\n",
		provider.Description(), settings.LLM.Model)
	return nil
}

// resolveAPIKey returns the API key for a provider, prompting on the
// terminal when the provider needs one and --api-key was not given.
func resolveAPIKey(cmd *cobra.Command, provider domain.AIProvider) (string, error) {
	if configAPIKey != "" || !provider.RequiresAPIKey() {
		return configAPIKey, nil
	}

	cmd.Print("Enter API key: ")
	apiKey := readPassword()
	cmd.Println()
	if apiKey == "" {
		return "", errors.New("API key is required for this provider")
	}
	return apiKey, nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
