// Package aiparse is the free-text entry path of the import pipeline. It
// delegates extraction of line items from PDF-extracted text to an Anthropic
// model under a fixed JSON schema, then re-validates the response so that
// downstream review behaves identically for both parse paths.
package aiparse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/sells-group/boq-cli/internal/model"
	"github.com/sells-group/boq-cli/pkg/anthropic"
)

// DefaultMaxChars bounds the document text sent to the model, to cap cost
// and latency. Longer documents are truncated, not rejected.
const DefaultMaxChars = 15000

const systemPrompt = `You are a quantity surveyor's assistant extracting Bill of Quantities line items from construction estimate documents. Return valid JSON matching the requested schema. Use null for fields not found.`

const extractPrompt = `Extract every line item from this Bill of Quantities document.

Return a valid JSON object with this exact shape:
{
  "items": [
    {
      "code": "<item code or null>",
      "description": "<item description>",
      "unit": "<unit of measure or null>",
      "quantity": <number>,
      "rate": <number>,
      "category": "<MATERIAL|LABOUR|SUB_WORK|EQUIPMENT|OTHER>",
      "section": "<enclosing section name or null>",
      "needs_review": <true if any value is uncertain>,
      "flag_reason": "<short human-readable reason or null>"
    }
  ]
}

Rules:
- Section headings are not line items; record them in each item's "section".
- Skip subtotal and total rows.
- Use 0 for quantities or rates the document does not state.

Document text:
%s`

// extractedItem mirrors the collaborator's per-item schema.
type extractedItem struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Category    string  `json:"category"`
	Section     string  `json:"section"`
	NeedsReview bool    `json:"needs_review"`
	FlagReason  string  `json:"flag_reason"`
}

type extractResponse struct {
	Items []extractedItem `json:"items"`
}

// Parser drives the AI-assisted extraction path. The client is an injected
// capability so tests substitute a deterministic stub.
type Parser struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	maxChars  int
	limiter   *rate.Limiter
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxChars overrides the input character budget.
func WithMaxChars(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// WithLimiter rate-limits extraction calls across uploads.
func WithLimiter(l *rate.Limiter) Option {
	return func(p *Parser) { p.limiter = l }
}

// New creates a Parser bound to a model.
func New(client anthropic.Client, modelID string, maxTokens int64, opts ...Option) *Parser {
	p := &Parser{
		client:    client,
		model:     modelID,
		maxTokens: maxTokens,
		maxChars:  DefaultMaxChars,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts line items from free document text. It is invoked at most
// once per upload and never retried: any failure to obtain or decode a
// well-formed response yields an empty result with a single user-facing
// message, exactly like a structural tabular failure.
func (p *Parser) Parse(ctx context.Context, text string) model.ParseResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.EmptyResult("document text is empty")
	}
	if len(text) > p.maxChars {
		text = text[:p.maxChars]
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return model.EmptyResult("extraction was cancelled before it started")
		}
	}

	temp := 0.0
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		System:      systemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(extractPrompt, text)},
		},
	})
	if err != nil {
		return model.EmptyResult("extraction request failed; please try again")
	}
	resp.Usage.LogUsage(p.model, "boq_extract")

	var parsed extractResponse
	if err := json.Unmarshal([]byte(stripFences(resp.Text())), &parsed); err != nil {
		return model.EmptyResult("extraction returned a malformed response")
	}

	items := make([]model.ParsedLineItem, 0, len(parsed.Items))
	for _, e := range parsed.Items {
		desc := strings.TrimSpace(e.Description)
		if desc == "" {
			// A well-formed response never omits descriptions; treat the
			// whole payload as untrustworthy rather than keep a subset.
			return model.EmptyResult("extraction returned an incomplete response")
		}
		items = append(items, normalizeItem(e, desc))
	}

	result := model.ParseResult{
		Items:    items,
		Sections: []string{},
	}
	result.Finalize()
	return result
}

// normalizeItem re-validates one collaborator item against the same rules
// the tabular path enforces, so review UX is uniform across source formats.
func normalizeItem(e extractedItem, desc string) model.ParsedLineItem {
	unit := strings.TrimSpace(e.Unit)
	if unit == "" {
		unit = model.DefaultUnit
	}

	item := model.ParsedLineItem{
		Code:            strings.TrimSpace(e.Code),
		Category:        model.ParseCategory(e.Category),
		Description:     desc,
		Unit:            unit,
		Quantity:        clampNonNegative(e.Quantity),
		Rate:            clampNonNegative(e.Rate),
		SectionName:     strings.TrimSpace(e.Section),
		IsReviewFlagged: e.NeedsReview,
		FlagReason:      strings.TrimSpace(e.FlagReason),
	}

	if !item.IsReviewFlagged {
		switch {
		case item.Quantity <= 0:
			item.IsReviewFlagged = true
			item.FlagReason = model.FlagReasonQuantityMissing
		case item.Rate <= 0:
			item.IsReviewFlagged = true
			item.FlagReason = model.FlagReasonRateMissing
		}
	}
	if item.IsReviewFlagged && item.FlagReason == "" {
		item.FlagReason = "Flagged during extraction"
	}
	return item
}

func clampNonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

// stripFences removes a surrounding markdown code fence, which models emit
// despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
