package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrAINotConfigured is returned when no Gemini API key was provided.
var ErrAINotConfigured = errors.New("GEMINI_API_KEY não configurada no backend")

// TextGenerator produces a completion for a single prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrAINotConfigured
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return GenerateText(ctx, g.client, g.model, genai.Text(prompt))
}

func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func GenerateText(ctx context.Context, client *genai.Client, model string, parts ...genai.Part) (string, error) {
	m := client.GenerativeModel(model)
	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if resp != nil {
		for _, c := range resp.Candidates {
			if c == nil || c.Content == nil {
				continue
			}
			for _, p := range c.Content.Parts {
				if t, ok := p.(genai.Text); ok {
					b.WriteString(string(t))
				}
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// IsQuotaError reports whether err is the API telling us the quota ran out.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "Error 429")
}

type ProductCandidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type IdentifiedItem struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
}

type Identification struct {
	Items []IdentifiedItem `json:"items"`
	Raw   string           `json:"raw,omitempty"`
}

func BuildIdentifyPrompt(request string, products []ProductCandidate) string {
	var list strings.Builder
	for _, p := range products {
		fmt.Fprintf(&list, "- %s (id: %s)\n", p.Name, p.ID)
	}
	return fmt.Sprintf(`Você é um assistente que transforma um pedido em lista de itens.

Pedido do usuário:
%q

Produtos disponíveis (se houver):
%s
Responda APENAS com JSON válido, sem texto extra.
Formato:
{"items":[{"productId":"...","quantity":1}]}
`, request, list.String())
}

// StripCodeFences removes a surrounding ```json ... ``` block if the model added one.
func StripCodeFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	} else {
		t = strings.TrimPrefix(t, "json")
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

// ParseIdentification decodes the model output; anything that is not the expected
// JSON comes back as an empty item list carrying the raw text.
func ParseIdentification(text string) Identification {
	var out Identification
	if err := json.Unmarshal([]byte(StripCodeFences(text)), &out); err != nil {
		return Identification{Items: []IdentifiedItem{}, Raw: text}
	}
	if out.Items == nil {
		out.Items = []IdentifiedItem{}
	}
	return out
}

// IdentifyProducts asks the generator to map a free-text shopping request onto known products.
func IdentifyProducts(ctx context.Context, gen TextGenerator, request string, products []ProductCandidate) (Identification, error) {
	text, err := gen.Generate(ctx, BuildIdentifyPrompt(request, products))
	if err != nil {
		return Identification{}, err
	}
	return ParseIdentification(text), nil
}
