package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/cogsched/cogsched/internal/domain"
)

// LLM parses free text with an OpenAI-compatible chat model. Any endpoint
// speaking the protocol works; the base URL is configurable for local models.
type LLM struct {
	client openai.Client
	model  string
}

var _ domain.TaskParser = (*LLM)(nil)

// NewLLM creates an LLM parser. model defaults to gpt-4o-mini; baseURL is
// optional.
func NewLLM(apiKey, baseURL, model string) *LLM {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &LLM{client: openai.NewClient(opts...), model: model}
}

const systemPrompt = `You convert a student's description of what they want to do today into JSON.
Respond with ONLY a JSON array, one object per task:
[{"title": "...", "category": "math|programming|science|writing|language|reading|review|general",
  "difficulty": 1-10, "duration_minutes": <int>}]
Estimate difficulty from the wording. Round durations to sensible minutes. No prose.`

// Parse asks the model for structured tasks and validates the result.
func (l *LLM) Parse(ctx context.Context, message string) ([]domain.Task, error) {
	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(l.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(message),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm parse: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm parse: empty response: %w", domain.ErrParseFailed)
	}
	return decodeTasks(resp.Choices[0].Message.Content)
}

// decodeTasks extracts the JSON array from a model response that may carry
// surrounding prose or fencing.
func decodeTasks(content string) ([]domain.Task, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("llm parse: no JSON array in response: %w", domain.ErrParseFailed)
	}

	var tasks []domain.Task
	if err := json.Unmarshal([]byte(content[start:end+1]), &tasks); err != nil {
		return nil, fmt.Errorf("llm parse: %v: %w", err, domain.ErrParseFailed)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("llm parse: zero tasks: %w", domain.ErrParseFailed)
	}
	for i := range tasks {
		if tasks[i].Difficulty < 1 {
			tasks[i].Difficulty = 1
		}
		if tasks[i].Difficulty > 10 {
			tasks[i].Difficulty = 10
		}
		if err := tasks[i].Validate(); err != nil {
			return nil, fmt.Errorf("llm parse: %v: %w", err, domain.ErrParseFailed)
		}
	}
	return tasks, nil
}
