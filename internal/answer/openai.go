package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

const systemPrompt = "Ты помощник для сотрудников розничной сети. Отвечай строго на основе предоставленного контекста. " +
	"Если в контексте недостаточно информации для точного ответа — честно откажись и предложи эскалацию. " +
	"Формат ответа: коротко (3–8 предложений), пошагово при необходимости. Обязательно укажи секцию 'Источник: …' с путями."

const answerTemplate = "Вопрос (RU):\n%s\n\n" +
	"Контекст (фрагменты из базы знаний, используй только их):\n%s\n\n" +
	"Инструкция: отвечай только фактами из контекста. Если не хватает данных — напиши отказ вида: " +
	"'В базе нет точного ответа. Обратитесь: %s'. В конце добавь 'Источник: …' со списком путей (2–5)."

// OpenAIGenerator answers questions through an OpenAI-compatible chat
// completions endpoint.
type OpenAIGenerator struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	escalation  string
	client      *http.Client
}

// NewOpenAIGenerator creates a generator from config. It shares the
// embedding provider's endpoint and key settings.
func NewOpenAIGenerator(emb *config.EmbeddingConfig, ans *config.AnswerConfig) (*OpenAIGenerator, error) {
	key := os.Getenv(emb.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", emb.APIKeyEnv)
	}
	return &OpenAIGenerator{
		baseURL:     emb.BaseURL,
		apiKey:      key,
		model:       ans.Model,
		temperature: ans.Temperature,
		escalation:  ans.Escalation,
		client:      &http.Client{Timeout: emb.Timeout()},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate produces a grounded answer, or the fixed refusal when retrieval
// gated the query. A generated answer missing its source section gets the
// ranked source paths appended.
func (g *OpenAIGenerator) Generate(ctx context.Context, question string, res *models.RetrievalResult) (string, error) {
	if ShouldRefuse(res) {
		return Refusal(g.escalation), nil
	}

	body, err := json.Marshal(chatRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(answerTemplate, strings.TrimSpace(question), res.Context, g.escalation)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat request failed: %s", resp.Status)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var out chatResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}

	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if !strings.Contains(text, "Источник:") {
		if paths := uniqueSourcePaths(res.Chunks); len(paths) > 0 {
			text += "\nИсточник: " + strings.Join(paths, "; ")
		}
	}
	return text, nil
}
