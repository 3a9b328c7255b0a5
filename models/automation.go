package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Trigger actions
const (
	ActionLike    = "like"
	ActionComment = "comment"
	ActionSave    = "save"
)

// Comment modes
const (
	CommentModeManual = "manual"
	CommentModeAI     = "ai"
)

// Condition types
const (
	ConditionOCRContains         = "ocr_contains"         // visual content match
	ConditionDescriptionContains = "description_contains" // on-screen caption text match
)

type Condition struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Trigger struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Action       string      `json:"action"` // like, comment, save
	CommentMode  string      `json:"comment_mode,omitempty"`
	CommentTexts []string    `json:"comment_texts,omitempty"`
	Conditions   []Condition `json:"conditions"`
	Enabled      bool        `json:"enabled"`
}

// AutomationConfig is the user-authored policy for one run. It is
// snapshotted at session start; changing it requires a new session.
type AutomationConfig struct {
	SkipPostsCount    int       `json:"skip_posts_count,omitempty"` // legacy single value
	SkipPostsCountMin int       `json:"skip_posts_count_min,omitempty"`
	SkipPostsCountMax int       `json:"skip_posts_count_max,omitempty"`
	ScrollIntervalMin float64   `json:"scroll_interval_min"` // seconds
	ScrollIntervalMax float64   `json:"scroll_interval_max"` // seconds
	Triggers          []Trigger `json:"triggers"`
}

// SkipBounds returns the normalized [min,max] analysis window, falling
// back to the legacy SkipPostsCount field when the range is absent.
func (c *AutomationConfig) SkipBounds() (int, int) {
	min := c.SkipPostsCountMin
	max := c.SkipPostsCountMax
	if min == 0 {
		min = c.SkipPostsCount
	}
	if max == 0 {
		max = c.SkipPostsCount
	}
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	return min, max
}

// Validate rejects configs that cannot drive a session: no triggers,
// duplicate trigger names (the classifier correlates results by name),
// or triggers without conditions. It also assigns IDs to triggers that
// lack one and defaults the comment mode to manual.
func (c *AutomationConfig) Validate() error {
	if len(c.Triggers) == 0 {
		return fmt.Errorf("automation config has no triggers")
	}
	if c.ScrollIntervalMin <= 0 || c.ScrollIntervalMax < c.ScrollIntervalMin {
		return fmt.Errorf("invalid scroll interval range [%v, %v]", c.ScrollIntervalMin, c.ScrollIntervalMax)
	}
	seen := make(map[string]bool, len(c.Triggers))
	for i := range c.Triggers {
		t := &c.Triggers[i]
		if t.Name == "" {
			return fmt.Errorf("trigger %d has no name", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate trigger name %q", t.Name)
		}
		seen[t.Name] = true
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		switch t.Action {
		case ActionLike, ActionComment, ActionSave:
		default:
			return fmt.Errorf("trigger %q has unknown action %q", t.Name, t.Action)
		}
		if len(t.Conditions) == 0 {
			return fmt.Errorf("trigger %q has no conditions", t.Name)
		}
		for _, cond := range t.Conditions {
			if cond.Type != ConditionOCRContains && cond.Type != ConditionDescriptionContains {
				return fmt.Errorf("trigger %q has unknown condition type %q", t.Name, cond.Type)
			}
		}
		if t.Action == ActionComment && t.CommentMode == "" {
			t.CommentMode = CommentModeManual
		}
	}
	return nil
}

// TriggerAnalysis is the classifier's verdict for one trigger.
type TriggerAnalysis struct {
	Matched       bool   `json:"matched"`
	Justification string `json:"justification"`
}

// SessionStats are monotonic counters, reset only by stop/restart.
type SessionStats struct {
	PostsScrolled    int `json:"posts_scrolled"`
	PostsAnalyzed    int `json:"posts_analyzed"`
	ActionsPerformed int `json:"actions_performed"`
	Errors           int `json:"errors"`
}

// SessionSnapshot is a point-in-time copy of a running session, safe to
// hand to the HTTP layer.
type SessionSnapshot struct {
	DeviceID         string           `json:"device_id"`
	Running          bool             `json:"running"`
	Config           AutomationConfig `json:"config"`
	Stats            SessionStats     `json:"stats"`
	CurrentPostCount int              `json:"current_post_count"`
}
