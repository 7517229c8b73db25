package gpt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-bot/internal/models"
	"gym-bot/internal/nav"
	"gym-bot/pkg/logger"
)

type fakeCompleter struct {
	answer string
	err    error
	reqs   []openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.answer}}},
	}, nil
}

func TestNormalizeIntent(t *testing.T) {
	tests := []struct {
		raw  string
		want nav.Intent
	}{
		{"fees", nav.Fees},
		{"  GYM TIMING \n", nav.GymTiming},
		{"`log_workout`", nav.LogWorkout},
		{"\"check_membership\".", nav.CheckMembership},
		{"Intent: book_trial", nav.BookTrial},
		{"register start", nav.RegisterStart},
		{"main_menu", nav.Unknown},
		{"I think it is fees", nav.Unknown},
		{"", nav.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeIntent(tt.raw))
		})
	}
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	fake := &fakeCompleter{answer: "Gym_Timing"}
	c := NewWithCompleter(fake, logger.Nop()).WithModel("test-model")

	assert.Equal(t, nav.GymTiming, c.Classify(ctx, "when do you open?", "Iron Paradise"))
	require.Len(t, fake.reqs, 1)
	assert.Equal(t, "test-model", fake.reqs[0].Model)
	assert.Contains(t, fake.reqs[0].Messages[1].Content, "Iron Paradise")
	assert.Contains(t, fake.reqs[0].Messages[1].Content, "when do you open?")

	fake.err = errors.New("rate limited")
	assert.Equal(t, nav.Unknown, c.Classify(ctx, "hi", ""))
	assert.Len(t, fake.reqs, 2, "no retry")

	assert.Equal(t, nav.Unknown, NewClient("", logger.Nop()).Classify(ctx, "hi", ""))
}

func TestParseWorkout(t *testing.T) {
	w, err := ParseWorkout(`{"type": "Running", "duration": "30m", "notes": "easy"}`)
	require.NoError(t, err)
	assert.Equal(t, WorkoutEntry{Type: "Running", Duration: "30m", Notes: "easy"}, w)

	w, err = ParseWorkout("```json\n{\"type\": \"Chest\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Chest", w.Type)
	assert.Equal(t, DefaultWorkoutDuration, w.Duration)

	w, err = ParseWorkout("Here you go:\n```\n{\"type\": \"Yoga\", \"duration\": \"45m\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "45m", w.Duration)

	_, err = ParseWorkout("sorry, I cannot help")
	assert.Error(t, err)
}

func TestAskIncludesGymContext(t *testing.T) {
	fake := &fakeCompleter{answer: " plan "}
	c := NewWithCompleter(fake, logger.Nop()).WithMaxTokens(123)
	info := models.DefaultGymInfo("Iron Paradise Gym")
	info.Contact.Phone = "12345"

	out, err := c.WorkoutPlan(context.Background(), info, "fat loss")
	require.NoError(t, err)
	assert.Equal(t, "plan", out)

	req := fake.reqs[0]
	assert.Equal(t, 123, req.MaxTokens)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.True(t, strings.Contains(req.Messages[0].Content, "Iron Paradise Gym"))
	assert.Contains(t, req.Messages[0].Content, "12345")
	assert.Contains(t, req.Messages[1].Content, "fat loss")
}

func TestOfflineClient(t *testing.T) {
	c := NewClient("", logger.Nop())
	assert.False(t, c.Online())
	_, err := c.Ask(context.Background(), models.GymInfo{}, "hi")
	assert.ErrorIs(t, err, ErrOffline)
	_, err = c.ExtractWorkout(context.Background(), "log run")
	assert.ErrorIs(t, err, ErrOffline)
}
