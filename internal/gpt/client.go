// internal/gpt/client.go
package gpt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"gym-bot/internal/models"
	"gym-bot/pkg/logger"
)

// ErrOffline is returned when no API key was configured.
var ErrOffline = errors.New("ai service is offline")

// ChatCompleter is the part of the OpenAI client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Client struct {
	api       ChatCompleter
	model     string
	maxTokens int
	logger    *logger.Logger
}

// NewClient returns a client for apiKey. An empty key yields an offline
// client whose calls fail with ErrOffline.
func NewClient(apiKey string, log *logger.Logger) *Client {
	c := &Client{
		model:     openai.GPT4oMini,
		maxTokens: 500,
		logger:    log,
	}
	if apiKey != "" {
		c.api = openai.NewClient(apiKey)
	}
	return c
}

// NewWithCompleter wraps an existing completer.
func NewWithCompleter(api ChatCompleter, log *logger.Logger) *Client {
	c := NewClient("", log)
	c.api = api
	return c
}

func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

func (c *Client) WithMaxTokens(n int) *Client {
	if n > 0 {
		c.maxTokens = n
	}
	return c
}

// Online reports whether requests can be made.
func (c *Client) Online() bool { return c != nil && c.api != nil }

func (c *Client) complete(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	if !c.Online() {
		return "", ErrOffline
	}
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: temperature,
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from GPT API")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Ask answers prompt as the assistant of the gym described by info.
func (c *Client) Ask(ctx context.Context, info models.GymInfo, prompt string) (string, error) {
	return c.complete(ctx, systemPrompt(info), prompt, 0.7)
}

func systemPrompt(info models.GymInfo) string {
	blob, err := json.MarshalIndent(gymContext(info), "", "  ")
	if err != nil {
		blob = []byte("{}")
	}
	name := info.GymName
	if name == "" {
		name = "our gym"
	}
	phone := info.Contact.Phone
	if phone == "" {
		phone = "the counter"
	}
	return fmt.Sprintf(
		"You are an intelligent assistant for %s.\n"+
			"Use the following gym information to answer user queries:\n%s\n"+
			"If the user asks about something not in the information above, provide a helpful general "+
			"response or suggest they contact the gym staff at %s.",
		name, blob, phone,
	)
}

type contextBlob struct {
	GymName    string            `json:"gym_name"`
	Contact    map[string]string `json:"contact"`
	Timings    map[string]string `json:"timings"`
	Fees       map[string]int    `json:"fees"`
	Trainers   []string          `json:"trainers,omitempty"`
	Facilities []string          `json:"facilities,omitempty"`
	Rules      []string          `json:"rules,omitempty"`
}

func gymContext(info models.GymInfo) contextBlob {
	b := contextBlob{
		GymName:    info.GymName,
		Contact:    map[string]string{"phone": info.Contact.Phone, "email": info.Contact.Email},
		Timings:    map[string]string{"monday_to_saturday": info.Timings.MonSat, "sunday": info.Timings.Sunday},
		Fees:       info.Fees,
		Facilities: info.Facilities,
		Rules:      info.Rules,
	}
	for _, t := range info.Trainers {
		b.Trainers = append(b.Trainers, fmt.Sprintf("%s (%s)", t.Name, t.Specialty))
	}
	return b
}
