// Package vision extracts structured semantic metadata from rendered pages.
//
// The extractor sends each page image to an OpenAI-compatible vision model via
// langchaingo and parses the model's JSON reply into PageMetadata. The raw
// reply is preserved verbatim alongside the typed view so it can be stored for
// auditability and future re-derivation.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	// ErrService indicates the vision model call failed or timed out. The
	// current page is aborted; the caller may retry at the document level
	// since re-ingestion is idempotent.
	ErrService = errors.New("vision service error")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)

const systemPrompt = "You are an image metadata extractor. Return concise JSON only."

const extractionSchema = `Extract this schema:
{
  "caption": "string (<= 15 words)",
  "content_types": ["string", "..."],
  "colors": {"color_names": ["string"], "dominant_hex": ["#rrggbb"], "primary_background": "string"},
  "chart": {"has_chart": boolean, "type": "string", "topic_keywords": ["string"]},
  "text": {"summary": "string", "key_fields": {"brand": "string", "product": "string", "variant": "string", "claims": ["string"]}}
}
Omit sub-objects that do not apply. Be accurate and avoid speculation.`

// Config holds configuration for the vision extractor.
type Config struct {
	// BaseURL is the OpenAI-compatible API base URL.
	BaseURL string

	// Model is the vision-capable model name (e.g. gpt-4o-mini).
	Model string

	// APIKey authenticates against the API.
	APIKey string

	// Timeout bounds each extraction call. Zero means no extra bound
	// beyond the caller's context.
	Timeout time.Duration
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// Extractor calls a vision model to describe page images.
type Extractor struct {
	llm    *openai.LLM
	config Config
}

// NewExtractor creates a vision extractor with the given configuration.
func NewExtractor(config Config) (*Extractor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	apiKey := config.APIKey
	if apiKey == "" {
		// langchaingo requires a token even for keyless local servers
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}

	return &Extractor{llm: llm, config: config}, nil
}

// ExtractPage describes one rendered page.
//
// It returns the typed metadata plus the verbatim JSON document the model
// produced. The contract is total over any well-formed reply: absent optional
// sub-objects decode to nil and are defaulted by the PageMetadata accessors,
// never propagated as errors.
func (e *Extractor) ExtractPage(ctx context.Context, pngData []byte) (*PageMetadata, json.RawMessage, error) {
	if len(pngData) == 0 {
		return nil, nil, fmt.Errorf("%w: empty page image", ErrService)
	}

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(extractionSchema),
				llms.ImageURLPart(dataURL),
			},
		},
	}

	resp, err := e.llm.GenerateContent(ctx, messages, llms.WithTemperature(0.2))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil, fmt.Errorf("%w: model returned no choices", ErrService)
	}

	raw := extractJSON(resp.Choices[0].Content)

	meta, err := ParseMetadata(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrService, err)
	}

	return meta, raw, nil
}

// ParseMetadata decodes a model reply into PageMetadata.
func ParseMetadata(raw json.RawMessage) (*PageMetadata, error) {
	var meta PageMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	return &meta, nil
}

// extractJSON strips markdown code fences some models wrap around JSON output.
func extractJSON(content string) json.RawMessage {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	return json.RawMessage(s)
}
