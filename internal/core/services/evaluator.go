package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
	"github.com/attesta-labs/attesta-cli/internal/core/ports/driven"
	"github.com/attesta-labs/attesta-cli/internal/logger"
)

// Degraded-mode reasoning strings. These are part of the evaluator's
// contract: callers and tests match on them.
const (
	reasonNoLLM       = "LLM provider is not configured. Configure a completion provider to evaluate criteria."
	reasonNoEvidence  = "No relevant document content found for this criterion."
	reasonNoReasoning = "No explanation provided."
)

// verdictSchema constrains the shape of the model's JSON reply before
// it is decoded. Values are still normalized afterwards; the schema
// only rejects structurally broken replies early.
const verdictSchema = `{
  "type": "object",
  "required": ["status"],
  "properties": {
    "status": {"type": "string"},
    "reasoning": {"type": "string"},
    "confidence": {"type": "number"},
    "evidence": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "page": {"type": "integer"},
          "quote": {"type": "string"}
        }
      }
    }
  }
}`

// rawVerdict is the wire shape of the model's reply. Confidence is a
// pointer so an omitted value can be told apart from an explicit zero.
type rawVerdict struct {
	Status     string            `json:"status"`
	Reasoning  string            `json:"reasoning"`
	Evidence   []domain.Evidence `json:"evidence"`
	Confidence *float64          `json:"confidence"`
}

// Evaluator produces a verdict for one checklist criterion from the
// chunks the retriever selected for it. Model output is never trusted:
// status is normalized and every quoted piece of evidence is verified
// against the chunk text before the verdict leaves this package.
type Evaluator struct {
	llmService  driven.LLMService
	promptStore driven.PromptStore
	schema      *gojsonschema.Schema
}

// NewEvaluator creates an evaluator. The LLM service is optional (can
// be nil); without it every evaluation yields a deterministic UNKNOWN
// verdict.
func NewEvaluator(llmService driven.LLMService, promptStore driven.PromptStore) (*Evaluator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(verdictSchema))
	if err != nil {
		return nil, fmt.Errorf("compile verdict schema: %w", err)
	}

	return &Evaluator{
		llmService:  llmService,
		promptStore: promptStore,
		schema:      schema,
	}, nil
}

// Evaluate judges a single criterion against its retrieved chunks.
// Provider failures degrade to an UNKNOWN verdict carrying the error
// text; the returned error is reserved for programming mistakes and is
// currently always nil.
func (e *Evaluator) Evaluate(
	ctx context.Context, checkText string, chunks []domain.RetrievedChunk,
) (domain.Verdict, error) {
	if e.llmService == nil {
		return unknownVerdict(reasonNoLLM), nil
	}
	if len(chunks) == 0 {
		return unknownVerdict(reasonNoEvidence), nil
	}

	systemPrompt, err := e.promptStore.Load(driven.PromptEvaluateSystem)
	if err != nil {
		return unknownVerdict(fmt.Sprintf("Error during evaluation: %v", err)), nil
	}
	userTemplate, err := e.promptStore.Load(driven.PromptEvaluateUser)
	if err != nil {
		return unknownVerdict(fmt.Sprintf("Error during evaluation: %v", err)), nil
	}

	userPrompt := fmt.Sprintf(userTemplate, checkText, buildContext(chunks))

	logger.Debug("Evaluating criterion against %d chunks", len(chunks))

	response, err := e.llmService.Chat(ctx, []driven.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}, driven.ChatOptions{
		MaxTokens:    1000,
		Temperature:  0.1,
		JSONResponse: true,
	})
	if err != nil {
		logger.Warn("LLM evaluation failed: %v", err)
		return unknownVerdict(fmt.Sprintf("Error during evaluation: %v", err)), nil
	}

	raw, err := e.parseResponse(response)
	if err != nil {
		logger.Warn("LLM response rejected: %v", err)
		return unknownVerdict(fmt.Sprintf("Error during evaluation: %v", err)), nil
	}

	return domain.Verdict{
		Status:     normalizeStatus(raw.Status),
		Reasoning:  defaultReasoning(raw.Reasoning),
		Evidence:   groundEvidence(raw.Evidence, chunks),
		Confidence: clampConfidence(raw.Confidence),
	}, nil
}

// parseResponse strips markdown code fences, checks the reply against
// the verdict schema and decodes it.
func (e *Evaluator) parseResponse(response string) (rawVerdict, error) {
	var raw rawVerdict

	cleaned := stripCodeFences(response)

	result, err := e.schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return raw, fmt.Errorf("invalid JSON response: %w", err)
	}
	if !result.Valid() {
		return raw, fmt.Errorf("response does not match verdict shape: %s", result.Errors()[0])
	}

	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return raw, fmt.Errorf("decode response: %w", err)
	}

	return raw, nil
}

// buildContext concatenates chunk excerpts tagged with their page
// numbers, separated so the model sees fragment boundaries.
func buildContext(chunks []domain.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = fmt.Sprintf("[Document Fragment %d, Page %d]\n%s", i+1, chunk.PageNumber, chunk.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// normalizeStatus coerces anything that is not exactly PASS or FAIL
// (case-insensitive) to UNKNOWN. An unrecognized status literal from
// the model must never reach storage.
func normalizeStatus(status string) domain.VerdictStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case string(domain.VerdictPass):
		return domain.VerdictPass
	case string(domain.VerdictFail):
		return domain.VerdictFail
	default:
		return domain.VerdictUnknown
	}
}

// groundEvidence keeps only quotes that can be verified against the
// retrieved chunk text. Quotes shorter than 10 characters are dropped;
// otherwise the first 30 characters of the quote's normalized 50-char
// prefix must appear in the lower-cased concatenated chunk content.
// At most 3 entries survive, each truncated to 300 characters, with a
// missing page defaulting to 1.
func groundEvidence(evidence []domain.Evidence, chunks []domain.RetrievedChunk) []domain.Evidence {
	if len(evidence) == 0 {
		return []domain.Evidence{}
	}

	contents := make([]string, len(chunks))
	for i := range chunks {
		contents[i] = strings.ToLower(chunks[i].Content)
	}
	allContent := strings.Join(contents, " ")

	grounded := make([]domain.Evidence, 0, 3)
	for _, e := range evidence {
		if len(e.Quote) < 10 {
			continue
		}

		prefix := strings.ToLower(e.Quote)
		if len(prefix) > 50 {
			prefix = prefix[:50]
		}
		if len(prefix) > 30 {
			prefix = prefix[:30]
		}
		if !strings.Contains(allContent, prefix) {
			logger.Debug("Dropping ungrounded evidence quote: %.40q", e.Quote)
			continue
		}

		quote := e.Quote
		if len(quote) > 300 {
			quote = quote[:300]
		}
		page := e.Page
		if page == 0 {
			page = 1
		}

		grounded = append(grounded, domain.Evidence{Page: page, Quote: quote})
		if len(grounded) == 3 {
			break
		}
	}

	return grounded
}

func defaultReasoning(reasoning string) string {
	if strings.TrimSpace(reasoning) == "" {
		return reasonNoReasoning
	}
	return reasoning
}

// clampConfidence bounds the model's confidence to [0,1]; an omitted
// value defaults to 0.5.
func clampConfidence(confidence *float64) float64 {
	if confidence == nil {
		return 0.5
	}
	switch {
	case *confidence < 0:
		return 0
	case *confidence > 1:
		return 1
	default:
		return *confidence
	}
}

// stripCodeFences removes a surrounding markdown code fence, which some
// models emit even in JSON mode.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func unknownVerdict(reasoning string) domain.Verdict {
	return domain.Verdict{
		Status:     domain.VerdictUnknown,
		Reasoning:  reasoning,
		Evidence:   []domain.Evidence{},
		Confidence: 0,
	}
}
