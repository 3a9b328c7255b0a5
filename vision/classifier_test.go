package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tiktokcontrol/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enabledTrigger(id, name string, conds ...models.Condition) models.Trigger {
	return models.Trigger{ID: id, Name: name, Action: models.ActionLike, Conditions: conds, Enabled: true}
}

func TestBuildAnalysisPromptListsEnabledTriggersOnly(t *testing.T) {
	triggers := []models.Trigger{
		enabledTrigger("a", "dancing", models.Condition{Type: models.ConditionOCRContains, Value: "person dancing"}),
		enabledTrigger("b", "promo", models.Condition{Type: models.ConditionDescriptionContains, Value: "link in bio"}),
		{ID: "c", Name: "ghost", Enabled: false, Conditions: []models.Condition{{Type: models.ConditionOCRContains, Value: "cat"}}},
	}

	prompt := buildAnalysisPrompt(triggers)
	assert.Contains(t, prompt, `- dancing: [VIDEO CONTAINS] "person dancing"`)
	assert.Contains(t, prompt, `- promo: [DESCRIPTION CONTAINS] "link in bio"`)
	assert.NotContains(t, prompt, "ghost")
	assert.Contains(t, prompt, "===TRIGGER_START===")
}

func TestParseAnalysisMatchesBlocksByName(t *testing.T) {
	raw := `The video shows a person dancing outdoors.

===TRIGGER_START===
TRIGGER_NAME: dancing
MATCHED: YES
REASONING: A person is clearly dancing in the frame.
===TRIGGER_END===

===TRIGGER_START===
TRIGGER_NAME: promo
MATCHED: NO
REASONING: No promotional text visible.
===TRIGGER_END===`

	triggers := []models.Trigger{
		enabledTrigger("a", "dancing"),
		enabledTrigger("b", "promo"),
	}
	out := parseAnalysis(raw, triggers)
	require.Len(t, out, 2)
	assert.True(t, out["a"].Matched)
	assert.Equal(t, "A person is clearly dancing in the frame.", out["a"].Justification)
	assert.False(t, out["b"].Matched)
}

func TestParseAnalysisStripsQuotesFromBlockNames(t *testing.T) {
	raw := `===TRIGGER_START===
TRIGGER_NAME: "dancing"
MATCHED: YES
REASONING: Matched.
===TRIGGER_END===`

	out := parseAnalysis(raw, []models.Trigger{enabledTrigger("a", "dancing")})
	assert.True(t, out["a"].Matched)
}

func TestParseAnalysisDisabledTrigger(t *testing.T) {
	trigger := enabledTrigger("a", "dancing")
	trigger.Enabled = false
	out := parseAnalysis("anything", []models.Trigger{trigger})
	assert.False(t, out["a"].Matched)
	assert.Equal(t, "Trigger disabled", out["a"].Justification)
}

func TestParseAnalysisDescriptionFallback(t *testing.T) {
	// No block for the trigger, but the extracted text the model emitted
	// outside any block contains the phrase.
	raw := `Description text reads: check the LINK IN BIO for more.

===TRIGGER_START===
TRIGGER_NAME: other
MATCHED: NO
REASONING: n/a
===TRIGGER_END===`

	triggers := []models.Trigger{
		enabledTrigger("a", "promo", models.Condition{Type: models.ConditionDescriptionContains, Value: "link in bio"}),
	}
	out := parseAnalysis(raw, triggers)
	require.Contains(t, out, "a")
	assert.True(t, out["a"].Matched)
	assert.Contains(t, out["a"].Justification, "link in bio")
}

func TestParseAnalysisFallbackIgnoresParsedBlockText(t *testing.T) {
	// The phrase appears only inside another trigger's block, which is
	// stripped before the fallback search.
	raw := `===TRIGGER_START===
TRIGGER_NAME: other
MATCHED: NO
REASONING: the description says link in bio
===TRIGGER_END===`

	triggers := []models.Trigger{
		enabledTrigger("a", "promo", models.Condition{Type: models.ConditionDescriptionContains, Value: "link in bio"}),
	}
	out := parseAnalysis(raw, triggers)
	assert.False(t, out["a"].Matched)
	assert.Equal(t, "Trigger phrase not found in extracted description/caption.", out["a"].Justification)
}

func TestParseAnalysisMissingBlockNoFallback(t *testing.T) {
	triggers := []models.Trigger{
		enabledTrigger("a", "dancing", models.Condition{Type: models.ConditionOCRContains, Value: "dancing"}),
	}
	out := parseAnalysis("nothing useful", triggers)
	assert.False(t, out["a"].Matched)
	assert.Equal(t, "No analysis data received.", out["a"].Justification)
}

func TestAnalyzeSkipsModelWhenNoEnabledTriggers(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: srv.URL})
	trigger := enabledTrigger("a", "dancing")
	trigger.Enabled = false

	out, err := client.Analyze(context.Background(), "aW1n", []models.Trigger{trigger})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "Trigger disabled", out["a"].Justification)
}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test", r.Header.Get("Authorization"))
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestAnalyzeRoundTrip(t *testing.T) {
	srv := chatServer(t, `===TRIGGER_START===
TRIGGER_NAME: dancing
MATCHED: YES
REASONING: Visible dancing.
===TRIGGER_END===`)
	defer srv.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: srv.URL})
	out, err := client.Analyze(context.Background(), "aW1n", []models.Trigger{enabledTrigger("a", "dancing")})
	require.NoError(t, err)
	assert.True(t, out["a"].Matched)
}

func TestCheckNormalPost(t *testing.T) {
	srv := chatServer(t, " yes ")
	defer srv.Close()
	client := NewClient(Config{APIKey: "test", BaseURL: srv.URL})
	assert.True(t, client.CheckNormalPost(context.Background(), "aW1n"))

	srvNo := chatServer(t, "NO")
	defer srvNo.Close()
	clientNo := NewClient(Config{APIKey: "test", BaseURL: srvNo.URL})
	assert.False(t, clientNo.CheckNormalPost(context.Background(), "aW1n"))
}

func TestCheckNormalPostDefaultsTrueOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": map[string]string{"message": "boom"}})
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: srv.URL})
	assert.True(t, client.CheckNormalPost(context.Background(), "aW1n"))
}

func TestGenerateComment(t *testing.T) {
	srv := chatServer(t, "This is so cool!")
	defer srv.Close()
	client := NewClient(Config{APIKey: "test", BaseURL: srv.URL})
	text, err := client.GenerateComment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "This is so cool!", text)
}
