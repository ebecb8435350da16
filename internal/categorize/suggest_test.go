package categorize

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedesk/pkg/models"
)

var categories = []models.Category{
	{ID: 1, Name: "Thực phẩm & Đồ uống"},
	{ID: 2, Name: "Văn phòng phẩm", Description: "Giấy, bút, mực in"},
}

func chatCompletion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   DefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func newTestSuggester(t *testing.T, content string, prompt *string) *Suggester {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if prompt != nil {
			*prompt = string(body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletion(content))
	}))
	t.Cleanup(server.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = server.URL + "/v1"
	return NewSuggesterWithClient(openai.NewClientWithConfig(config), "")
}

func TestSuggest(t *testing.T) {
	var prompt string
	s := newTestSuggester(t, "```json\n{\"category_id\": 2, \"reason\": \" Giấy in \"}\n```", &prompt)

	rec := models.InvoiceRecord{
		InvoiceNumber: "HD00123",
		SupplierName:  "CTY TNHH ABC",
		LineItems:     []models.LineItem{{ProductName: "Giấy A4"}, {ProductName: " "}},
	}
	got, err := s.Suggest(context.Background(), rec, categories)
	require.NoError(t, err)
	assert.Equal(t, categories[1], got.Category)
	assert.Equal(t, "Giấy in", got.Reason)

	assert.Contains(t, prompt, "2: Văn phòng phẩm (Giấy, bút, mực in)")
	assert.Contains(t, prompt, "Giấy A4")
	assert.Contains(t, prompt, DefaultModel)
}

func TestSuggestErrors(t *testing.T) {
	_, err := newTestSuggester(t, `{}`, nil).Suggest(context.Background(), models.InvoiceRecord{}, nil)
	assert.ErrorIs(t, err, ErrNoCategories)

	_, err = newTestSuggester(t, `{"category_id": 9}`, nil).Suggest(context.Background(), models.InvoiceRecord{}, categories)
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, err = newTestSuggester(t, `no idea`, nil).Suggest(context.Background(), models.InvoiceRecord{}, categories)
	assert.Error(t, err)
}

func TestNewSuggesterRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewSuggester()
	assert.Error(t, err)
}
