package gpt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gym-bot/internal/models"
)

// DefaultWorkoutDuration is used when the message names no duration.
const DefaultWorkoutDuration = "60m"

// WorkoutEntry is the structured form of a "log ..." message.
type WorkoutEntry struct {
	Type     string `json:"type"`
	Duration string `json:"duration"`
	Notes    string `json:"notes"`
}

const extractPrompt = `Extract workout details from this message: '%s'.
Return JSON with keys: type, duration, notes.
Example: 'Log Running 30m' -> {"type": "Running", "duration": "30m", "notes": ""}.
If duration or notes are missing, use '60m' for duration and empty string for notes.
Reply ONLY with JSON.`

// ExtractWorkout asks the model for the workout fields of text. The answer
// may be wrapped in a markdown code fence.
func (c *Client) ExtractWorkout(ctx context.Context, text string) (WorkoutEntry, error) {
	raw, err := c.complete(ctx, "You extract structured data and reply with JSON only.", fmt.Sprintf(extractPrompt, text), 0)
	if err != nil {
		return WorkoutEntry{}, err
	}
	return ParseWorkout(raw)
}

// ParseWorkout decodes a model answer into a WorkoutEntry.
func ParseWorkout(raw string) (WorkoutEntry, error) {
	var w WorkoutEntry
	if err := json.Unmarshal([]byte(stripFence(raw)), &w); err != nil {
		return WorkoutEntry{}, fmt.Errorf("decode workout %q: %w", raw, err)
	}
	w.Type = strings.TrimSpace(w.Type)
	w.Duration = strings.TrimSpace(w.Duration)
	w.Notes = strings.TrimSpace(w.Notes)
	if w.Type == "" {
		w.Type = "Workout"
	}
	if w.Duration == "" {
		w.Duration = DefaultWorkoutDuration
	}
	return w, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	body := s[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// WorkoutPlan generates a workout routine for the member's request.
func (c *Client) WorkoutPlan(ctx context.Context, info models.GymInfo, request string) (string, error) {
	return c.Ask(ctx, info, fmt.Sprintf(
		"Create a professional gym workout plan based on this request: %s. Keep it concise and formatted with bullet points.", request))
}

// DietPlan generates a meal plan for the member's request.
func (c *Client) DietPlan(ctx context.Context, info models.GymInfo, request string) (string, error) {
	return c.Ask(ctx, info, fmt.Sprintf(
		"Create a professional gym diet plan based on this request: %s. Keep it concise and formatted with bullet points.", request))
}

// AdminTips asks for management advice from the month's headline numbers.
func (c *Client) AdminTips(ctx context.Context, info models.GymInfo, monthlyRevenue, atRisk int) (string, error) {
	return c.Ask(ctx, info, fmt.Sprintf(
		"You are a Senior Gym Manager. Here is the current data:\n"+
			"- Revenue this month: ₹%d\n"+
			"- Members at risk: %d\n"+
			"Give 3 short, professional 'Admin Tips' to improve the gym.", monthlyRevenue, atRisk))
}
