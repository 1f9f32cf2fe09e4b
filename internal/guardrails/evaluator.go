package guardrails

import (
	"context"
	"strings"
)

// Action enumerates evaluator outcomes.
type Action string

const (
	ActionAllow Action = "allow"
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// PreCheckInput captures the user text about to be placed in a prompt.
type PreCheckInput struct {
	Subject string
}

// Result represents the evaluator decision.
type Result struct {
	Action     Action
	Violations []string
	Category   string
}

// Blocked reports whether the request must be rejected.
func (r Result) Blocked() bool {
	return r.Action == ActionBlock
}

// Evaluator runs guardrail rules with a parsed config.
type Evaluator struct {
	config    Config
	moderator *moderationClient
}

func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{config: cfg, moderator: newModerationClient(cfg.Moderation)}
}

// PreCheck applies keyword rules, then the moderation webhook when one is
// configured. Webhook failures are returned alongside an allow decision.
func (e *Evaluator) PreCheck(ctx context.Context, input PreCheckInput) (Result, error) {
	if e == nil || !e.config.Enabled {
		return Result{Action: ActionAllow}, nil
	}
	if violation := matchKeyword(e.config.BlockedKeywords, input.Subject); violation != "" {
		return Result{Action: ActionBlock, Violations: []string{violation}, Category: "blocked_keyword"}, nil
	}
	return e.moderator.check(ctx, input.Subject)
}

func matchKeyword(keywords []string, text string) string {
	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		kw := strings.ToLower(strings.TrimSpace(keyword))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			return keyword
		}
	}
	return ""
}
