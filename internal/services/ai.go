package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const taskExtractionPrompt = `You turn free text into project tasks.

Current time: %s

Text:
%s

Answer with a JSON object of this shape and nothing else:
{"tasks": [{"title": "short title", "description": "details", "due_date": "ISO8601 timestamp or null"}]}

Use an empty "tasks" array when the text holds no tasks. Resolve relative
deadlines such as "tomorrow" against the current time.`

// TaskGenerator extracts task drafts from free text
type TaskGenerator interface {
	GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error)
}

// GeneratedTask is one task draft proposed by a TaskGenerator.
type GeneratedTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

type generatedTasks struct {
	Tasks []GeneratedTask `json:"tasks"`
}

// AIService drafts tasks with an OpenAI chat model.
type AIService struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

// NewAIService creates an AIService. An empty model selects GPT-4o.
func NewAIService(apiKey, model string) *AIService {
	if model == "" {
		model = openai.GPT4o
	}
	return &AIService{
		client: openai.NewClient(apiKey),
		model:  model,
		now:    time.Now,
	}
}

// GenerateTasksFromText asks the model for the tasks described in text.
func (s *AIService) GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error) {
	prompt := fmt.Sprintf(taskExtractionPrompt, s.now().UTC().Format(time.RFC3339), text)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("task generation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("task generation returned no choices")
	}

	return parseGeneratedTasks(resp.Choices[0].Message.Content)
}

// parseGeneratedTasks accepts either the {"tasks": [...]} object or a bare
// array, optionally wrapped in a markdown code fence.
func parseGeneratedTasks(content string) ([]GeneratedTask, error) {
	content = stripCodeFence(content)
	if strings.HasPrefix(content, "[") {
		var tasks []GeneratedTask
		if err := json.Unmarshal([]byte(content), &tasks); err != nil {
			return nil, fmt.Errorf("failed to parse generated tasks: %w", err)
		}
		return tasks, nil
	}

	var wrapped generatedTasks
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse generated tasks: %w", err)
	}
	return wrapped.Tasks, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
