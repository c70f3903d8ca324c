package domain

import "strings"

// SleepAdvice is a short list of sleep recommendations.
type SleepAdvice struct {
	Messages   []string `json:"messages"`
	Disclaimer string   `json:"disclaimer,omitempty"`
}

// Validate checks that the advice carries at least one non-blank message.
func (a *SleepAdvice) Validate() error {
	for _, m := range a.Messages {
		if strings.TrimSpace(m) != "" {
			return nil
		}
	}
	return ErrNoMessages
}

// Texts returns the advice messages.
func (a *SleepAdvice) Texts() []string {
	return append([]string(nil), a.Messages...)
}

// ChatReply is the coach's answer to a user message.
type ChatReply struct {
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Validate checks that the reply has message text.
func (c *ChatReply) Validate() error {
	if strings.TrimSpace(c.Message) == "" {
		return ErrEmptyReply
	}
	return nil
}

// Texts returns the reply and its suggestions.
func (c *ChatReply) Texts() []string {
	return append([]string{c.Message}, c.Suggestions...)
}

// Bundle is the combined weekly training, nutrition and sleep payload
// produced by a single generation call.
type Bundle struct {
	Training  TrainingPlan  `json:"training"`
	Nutrition NutritionPlan `json:"nutrition"`
	Sleep     SleepAdvice   `json:"sleep"`
}

// Validate validates each section in turn.
func (b *Bundle) Validate() error {
	if err := b.Training.Validate(); err != nil {
		return err
	}
	if err := b.Nutrition.Validate(); err != nil {
		return err
	}
	return b.Sleep.Validate()
}

// Texts returns the user-facing strings of all three sections.
func (b *Bundle) Texts() []string {
	out := b.Training.Texts()
	out = append(out, b.Nutrition.Texts()...)
	return append(out, b.Sleep.Texts()...)
}
