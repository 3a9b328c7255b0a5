package service

import (
	"context"
	"math/rand"
	"regexp"
	"strings"

	"tiktokcontrol/models"
)

// genericComment is typed whenever no better comment can be produced.
// Comment resolution must never abort an action.
const genericComment = "Cool!"

var needContextRe = regexp.MustCompile(`(?i)need (more )?context`)

// CommentGenerator produces an AI comment. Implemented by vision.Client.
type CommentGenerator interface {
	GenerateComment(ctx context.Context) (string, error)
}

// CommentResolver turns a trigger's comment configuration into the
// literal string to type.
type CommentResolver struct {
	generator CommentGenerator
	rng       *rand.Rand // nil = package-level source; set only in tests
}

func NewCommentResolver(generator CommentGenerator, rng *rand.Rand) *CommentResolver {
	return &CommentResolver{generator: generator, rng: rng}
}

func (r *CommentResolver) intn(n int) int {
	if r.rng != nil {
		return r.rng.Intn(n)
	}
	return rand.Intn(n)
}

// Resolve returns the comment text for a trigger. lastComment is the
// session's previously typed comment, excluded from manual pools of two
// or more to avoid back-to-back duplicates. Never returns empty.
func (r *CommentResolver) Resolve(ctx context.Context, trigger models.Trigger, lastComment string) string {
	if trigger.CommentMode == models.CommentModeAI {
		return r.resolveAI(ctx)
	}
	return r.resolveManual(trigger, lastComment)
}

func (r *CommentResolver) resolveManual(trigger models.Trigger, lastComment string) string {
	pool := make([]string, 0, len(trigger.CommentTexts))
	for _, t := range trigger.CommentTexts {
		if strings.TrimSpace(t) != "" {
			pool = append(pool, t)
		}
	}
	if len(pool) == 0 {
		return genericComment
	}

	candidates := pool
	if lastComment != "" && len(pool) > 1 {
		filtered := make([]string, 0, len(pool))
		for _, t := range pool {
			if t != lastComment {
				filtered = append(filtered, t)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}
	return candidates[r.intn(len(candidates))]
}

// resolveAI asks the model for a comment and sanitizes the result.
// Apologetic or no-context answers, empty output, and request failures
// all fall back to the generic string.
func (r *CommentResolver) resolveAI(ctx context.Context) string {
	if r.generator == nil {
		return genericComment
	}
	suggestion, err := r.generator.GenerateComment(ctx)
	if err != nil {
		return genericComment
	}

	suggestion = strings.TrimSpace(suggestion)
	if len(suggestion) > 1 && strings.HasPrefix(suggestion, `"`) && strings.HasSuffix(suggestion, `"`) {
		suggestion = strings.TrimSpace(suggestion[1 : len(suggestion)-1])
	}

	lower := strings.ToLower(suggestion)
	if suggestion == "" ||
		strings.Contains(lower, "sorry") ||
		strings.Contains(lower, "no context") ||
		needContextRe.MatchString(suggestion) {
		return genericComment
	}
	return suggestion
}
