package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Returns the prompt content and any error encountered.
	// If the prompt is not found, implementations should return a sensible
	// default or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptEvaluateSystem is the system prompt for criterion evaluation.
	// It instructs the model to judge PASS/FAIL/UNKNOWN strictly from the
	// supplied fragments and to answer in the fixed JSON verdict shape.
	// This prompt has no format placeholders.
	PromptEvaluateSystem = "evaluate_system"

	// PromptEvaluateUser is the user prompt for criterion evaluation.
	// The template expects two %s placeholders: the criterion text and
	// the page-tagged document fragments.
	PromptEvaluateUser = "evaluate_user"
)
