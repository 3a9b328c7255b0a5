package vision

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"tiktokcontrol/models"
)

// triggerBlockRe extracts the fixed-format per-trigger blocks the prompt
// instructs the model to emit.
var triggerBlockRe = regexp.MustCompile(`(?s)===TRIGGER_START===\s*TRIGGER_NAME:\s*(.+?)\s*MATCHED:\s*(YES|NO)\s*REASONING:\s*(.+?)\s*===TRIGGER_END===`)

var nonPrintableRe = regexp.MustCompile(`[^\x20-\x7E]+`)

// buildAnalysisPrompt composes the single classification prompt: describe
// the visuals, extract on-screen text, then answer one block per enabled
// trigger.
func buildAnalysisPrompt(triggers []models.Trigger) string {
	var b strings.Builder
	b.WriteString(`Analyze this social media video screenshot.

1. VISUAL CONTENT: Describe what you see visually (people, activities, objects, scene) for VIDEO CONTENT analysis.
2. TEXT EXTRACTION: Extract any VISIBLE text (captions, overlays, description under username, on-screen text).
3. For each TRIGGER below, follow instructions:
- If TRIGGER uses VIDEO CONTAINS, match visually.
- If TRIGGER uses DESCRIPTION CONTAINS, check if the extracted description/caption text includes the specified phrase (case-insensitive substring match).

For each trigger, respond in exactly this format:

===TRIGGER_START===
TRIGGER_NAME: [exact trigger name]
MATCHED: YES/NO
REASONING: [explain your analysis (visual and/or text match)]
===TRIGGER_END===

TRIGGERS TO ANALYZE:
`)

	for _, t := range triggers {
		if !t.Enabled {
			continue
		}
		fmt.Fprintf(&b, "\n- %s: ", t.Name)
		for _, cond := range t.Conditions {
			switch cond.Type {
			case models.ConditionOCRContains:
				fmt.Fprintf(&b, "[VIDEO CONTAINS] %q ", cond.Value)
			case models.ConditionDescriptionContains:
				fmt.Fprintf(&b, "[DESCRIPTION CONTAINS] %q ", cond.Value)
			}
		}
	}

	b.WriteString("\n\nIMPORTANT: Only use the visible on-screen description/overlay text for DESCRIPTION CONTAINS triggers.")
	return b.String()
}

// parseAnalysis correlates the model's free-text response back to the
// trigger set. Blocks are matched by trigger name; results are keyed by
// trigger ID. Disabled triggers never reach the model and are reported
// unmatched. A trigger whose block is missing falls back to a literal
// substring search of its description conditions against the response
// remainder (best-effort, not authoritative).
func parseAnalysis(raw string, triggers []models.Trigger) map[string]models.TriggerAnalysis {
	byName := make(map[string]models.TriggerAnalysis)
	for _, m := range triggerBlockRe.FindAllStringSubmatch(raw, -1) {
		name := strings.ReplaceAll(strings.TrimSpace(m[1]), `"`, "")
		byName[name] = models.TriggerAnalysis{
			Matched:       strings.EqualFold(strings.TrimSpace(m[2]), "YES"),
			Justification: strings.TrimSpace(m[3]),
		}
	}

	result := make(map[string]models.TriggerAnalysis, len(triggers))
	for _, t := range triggers {
		if !t.Enabled {
			result[t.ID] = models.TriggerAnalysis{Matched: false, Justification: "Trigger disabled"}
			continue
		}
		if analysis, ok := byName[t.Name]; ok {
			result[t.ID] = analysis
			continue
		}
		if analysis, ok := descriptionFallback(raw, t); ok {
			result[t.ID] = analysis
			continue
		}
		result[t.ID] = models.TriggerAnalysis{Matched: false, Justification: "No analysis data received."}
	}
	return result
}

// descriptionFallback searches the response text left after stripping all
// parsed blocks for the trigger's description phrases.
func descriptionFallback(raw string, t models.Trigger) (models.TriggerAnalysis, bool) {
	hasDescription := false
	for _, cond := range t.Conditions {
		if cond.Type == models.ConditionDescriptionContains {
			hasDescription = true
			break
		}
	}
	if !hasDescription {
		return models.TriggerAnalysis{}, false
	}

	remainder := triggerBlockRe.ReplaceAllString(raw, "")
	remainder = nonPrintableRe.ReplaceAllString(remainder, " ")
	remainder = strings.ToLower(strings.ReplaceAll(remainder, "\n", " "))

	for _, cond := range t.Conditions {
		if cond.Type != models.ConditionDescriptionContains {
			continue
		}
		phrase := strings.ToLower(cond.Value)
		if phrase != "" && strings.Contains(remainder, phrase) {
			return models.TriggerAnalysis{
				Matched:       true,
				Justification: fmt.Sprintf("Detected description/caption contains phrase: %q", cond.Value),
			}, true
		}
	}
	return models.TriggerAnalysis{
		Matched:       false,
		Justification: "Trigger phrase not found in extracted description/caption.",
	}, true
}

// Analyze classifies one screenshot against the trigger set and returns
// per-trigger verdicts keyed by trigger ID.
func (c *Client) Analyze(ctx context.Context, imageB64 string, triggers []models.Trigger) (map[string]models.TriggerAnalysis, error) {
	anyEnabled := false
	for _, t := range triggers {
		if t.Enabled {
			anyEnabled = true
			break
		}
	}
	if !anyEnabled {
		// Nothing to ask the model; everything reports unmatched.
		return parseAnalysis("", triggers), nil
	}

	raw, err := c.complete(ctx, chatRequest{
		Model:       c.cfg.VisionModel,
		Messages:    []chatMessage{visionMessage(buildAnalysisPrompt(triggers), imageB64)},
		MaxTokens:   2000,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("visual analysis: %w", err)
	}
	return parseAnalysis(raw, triggers), nil
}
