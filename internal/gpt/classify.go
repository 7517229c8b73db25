package gpt

import (
	"context"
	"fmt"
	"strings"

	"gym-bot/internal/nav"
)

const classifyPrompt = `You are the AI brain of '%s'.
Your ONLY job is to classify the user's message into the correct category (intent).

LISTED INTENTS:
- greeting: "Hi", "Hello", "Hey", "Good morning".
- goodbye: "Bye", "Thanks", "Thank you", "See you later".
- help: "What can you do?", "Help me", "How does this work?", "/help", "/start".
- gym_timing: Questions about opening hours, closing hours, or Sunday timings.
- fees: Questions about price, membership cost, plans.
- workout: Asking for an exercise routine, weight loss training, or "make me a plan".
- diet: Asking for food advice, meal plans, or "what should I eat?".
- log_workout: User reporting their exercise like "I did x reps" or "Add my workout".
- check_membership: User asking about their status, join date, or "Am I active?".
- view_schedule: Asking for class times, Yoga timings, or "What is on today?".
- view_facilities: Asking about equipment, machines, AC, showers, or "What do you have?".
- register_start: Asking to join the gym, "Become a member", "Sign up", or "I want to join".
- book_trial: Asking to join for a day, "Can I try?", "Free trial", or "Trial pass".
- unknown: ONLY use if the message is completely spam or unrelated to anything above.

RULES:
1. Always prefer a specific gym intent over 'unknown'.
2. '/start' and '/help' are always the 'help' intent.
3. Choose the one that matches the core meaning.

User message: "%s"

Reply ONLY with the exact intent name from the list above. No other text.`

var allowed = func() map[nav.Intent]bool {
	m := make(map[nav.Intent]bool, len(nav.ClassifierLabels))
	for _, in := range nav.ClassifierLabels {
		m[in] = true
	}
	return m
}()

// Classify maps free text to one of nav.ClassifierLabels. Any failure or
// answer outside the list is nav.Unknown.
func (c *Client) Classify(ctx context.Context, text, gymName string) nav.Intent {
	if gymName == "" {
		gymName = "the gym"
	}
	answer, err := c.complete(ctx, "You classify gym chat messages.", fmt.Sprintf(classifyPrompt, gymName, text), 0)
	if err != nil {
		if c.logger != nil {
			c.logger.Warnw("Intent classification failed", "error", err)
		}
		return nav.Unknown
	}
	return NormalizeIntent(answer)
}

// NormalizeIntent lower-cases the raw answer, drops quoting and trailing
// punctuation, joins words with underscores and checks the allow-list.
func NormalizeIntent(raw string) nav.Intent {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "`'\".:;!,- \n\t")
	s = strings.TrimPrefix(s, "intent:")
	s = strings.Join(strings.Fields(s), "_")
	in := nav.Intent(s)
	if allowed[in] {
		return in
	}
	return nav.Unknown
}
