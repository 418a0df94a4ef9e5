// Package cli implements the attesta command line interface.
//
// Commands are thin adapters: they parse arguments, call the driving
// port services wired in initServices, and format output. All pipeline
// behaviour lives in the core services.
package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/attesta-labs/attesta-cli/internal/adapters/driven/ai"
	configfile "github.com/attesta-labs/attesta-cli/internal/adapters/driven/config/file"
	"github.com/attesta-labs/attesta-cli/internal/adapters/driven/storage/sqlite"
	"github.com/attesta-labs/attesta-cli/internal/chunker"
	"github.com/attesta-labs/attesta-cli/internal/core/ports/driven"
	"github.com/attesta-labs/attesta-cli/internal/core/ports/driving"
	"github.com/attesta-labs/attesta-cli/internal/core/services"
	"github.com/attesta-labs/attesta-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Persistent flags.
var (
	verbose bool
	dataDir string
)

// Services wired by initServices. Commands nil-check what they use so
// tests can exercise argument handling without a full stack.
var (
	store           *sqlite.Store
	documentStore   driven.DocumentStore
	checklistStore  driven.ChecklistStore
	promptStore     *configfile.PromptStore
	settingsService *services.SettingsService
	ingestor        driving.Ingestor
	checkService    driving.CheckService
)

var rootCmd = &cobra.Command{
	Use:   "attesta",
	Short: "Compliance checking for financial documents",
	Long: `Attesta evaluates scanned financial documents against compliance
checklists. Documents are ingested as page-indexed text, chunked and
indexed for retrieval, then checked criterion by criterion with
grounded PASS/FAIL/UNKNOWN verdicts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)

		// Commands that don't touch the pipeline skip service wiring,
		// so they never create data directories as a side effect.
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}

		return initServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.attesta)")
}

// Execute runs the root command.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

// initServices wires the storage, AI and core services. Called once per
// invocation from the root command's PersistentPreRunE. Already-wired
// services are left alone so tests can inject fakes.
func initServices() error {
	if checkService != nil {
		return nil
	}

	logger.Section("Initialisation")

	var storageDir, configDir, promptDir string
	if dataDir != "" {
		storageDir = filepath.Join(dataDir, "data")
		configDir = dataDir
		promptDir = filepath.Join(dataDir, "prompts")
	}

	var err error
	store, err = sqlite.NewStore(storageDir)
	if err != nil {
		return err
	}
	logger.Debug("Metadata store: %s", store.Path())

	documentStore = store.DocumentStore()
	checklistStore = store.ChecklistStore()
	checkStore := store.CheckStore()

	configStore, err := configfile.NewConfigStore(configDir)
	if err != nil {
		return err
	}
	logger.Debug("Config: %s", configStore.Path())

	promptStore, err = configfile.NewPromptStore(promptDir)
	if err != nil {
		return err
	}

	settingsService = services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return err
	}

	// AI providers are optional. Retrieval degrades to keyword matching
	// without embeddings; evaluation degrades to UNKNOWN without an LLM.
	embeddingService, err := ai.CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		logger.Warn("Embedding provider unavailable, using keyword retrieval: %v", err)
		embeddingService = nil
	}
	llmService, err := ai.CreateAndValidateLLMService(&settings.LLM)
	if err != nil {
		logger.Warn("LLM provider unavailable, verdicts will be UNKNOWN: %v", err)
		llmService = nil
	}

	pageChunker := chunker.New(
		chunker.WithChunkSize(settings.Chunking.ChunkSize),
		chunker.WithOverlap(settings.Chunking.Overlap),
		chunker.WithMaxChunks(settings.Chunking.MaxChunks),
	)

	ingestor = services.NewIngestService(documentStore, pageChunker, embeddingService)

	retriever := services.NewRetriever(documentStore, embeddingService)
	evaluator, err := services.NewEvaluator(llmService, promptStore)
	if err != nil {
		return err
	}

	checkService = services.NewCheckRunner(
		documentStore, checklistStore, checkStore,
		retriever, evaluator, settings.Check,
	)

	return nil
}

// closeServices releases resources held by initServices.
func closeServices() {
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("Closing metadata store: %v", err)
		}
	}
}
