// Package categorize asks an OpenAI chat model which product category fits an
// invoice.
package categorize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"invoicedesk/internal/logger"
	"invoicedesk/pkg/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.GPT4oMini

var (
	// ErrNoCategories is returned when there is nothing to choose from.
	ErrNoCategories = errors.New("no categories to choose from")
	// ErrUnknownCategory is returned when the model picks an ID outside the list.
	ErrUnknownCategory = errors.New("model chose an unknown category")
)

const systemPrompt = `You are a bookkeeper for a Vietnamese retail business.
You assign purchase invoices to exactly one product category from a given list.
Answer with a JSON object only: {"category_id": <id>, "reason": "<one short sentence>"}.`

// Suggestion is the category chosen for an invoice.
type Suggestion struct {
	Category models.Category `json:"category"`
	Reason   string          `json:"reason"`
}

// Suggester picks product categories through an OpenAI chat model.
type Suggester struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

type suggestionResponse struct {
	CategoryID int    `json:"category_id"`
	Reason     string `json:"reason"`
}

// NewSuggester creates a suggester from OPENAI_API_KEY and OPENAI_MODEL.
func NewSuggester() (*Suggester, error) {
	const op = "NewSuggester"

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("%s: OPENAI_API_KEY environment variable is required", op)
	}
	return NewSuggesterWithClient(openai.NewClient(apiKey), os.Getenv("OPENAI_MODEL")), nil
}

// NewSuggesterWithClient creates a suggester with an explicit client.
func NewSuggesterWithClient(client *openai.Client, model string) *Suggester {
	if model == "" {
		model = DefaultModel
	}
	return &Suggester{
		client: client,
		model:  model,
		log:    logger.WithComponent("categorize"),
	}
}

// Suggest returns the category of categories that best fits rec.
func (s *Suggester) Suggest(ctx context.Context, rec models.InvoiceRecord, categories []models.Category) (*Suggestion, error) {
	const op = "Suggest"

	if len(categories) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoCategories)
	}

	s.log.Info().
		Str("invoice_number", rec.InvoiceNumber).
		Str("supplier", rec.SupplierName).
		Int("line_items", len(rec.LineItems)).
		Int("categories", len(categories)).
		Msg("Suggesting product category")

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.1,
		MaxTokens:   300,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(rec, categories)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: ChatGPT request failed: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: no response choices from ChatGPT", op)
	}

	content := resp.Choices[0].Message.Content
	var parsed suggestionResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		s.log.Warn().Str("response", content).Msg("Unusable ChatGPT response")
		return nil, fmt.Errorf("%s: failed to parse response: %w", op, err)
	}

	for _, c := range categories {
		if c.ID == parsed.CategoryID {
			s.log.Info().
				Int("category_id", c.ID).
				Str("category", c.Name).
				Str("reason", parsed.Reason).
				Msg("Category suggested")
			return &Suggestion{Category: c, Reason: strings.TrimSpace(parsed.Reason)}, nil
		}
	}
	return nil, fmt.Errorf("%s: %w: %d", op, ErrUnknownCategory, parsed.CategoryID)
}

func buildPrompt(rec models.InvoiceRecord, categories []models.Category) string {
	var b strings.Builder
	b.WriteString("Categories:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %d: %s", c.ID, c.Name)
		if c.Description != "" {
			fmt.Fprintf(&b, " (%s)", c.Description)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nInvoice %s from %s\nItems:\n", rec.InvoiceNumber, rec.SupplierName)
	for _, item := range rec.LineItems {
		if name := strings.TrimSpace(item.ProductName); name != "" {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}
	return b.String()
}

// extractJSON trims anything around the outermost JSON object, such as
// markdown code fences.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return content
	}
	return content[start : end+1]
}
