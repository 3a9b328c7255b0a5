package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"tiktokcontrol/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	text string
	err  error
}

func (g *stubGenerator) GenerateComment(ctx context.Context) (string, error) {
	return g.text, g.err
}

func manualTrigger(texts ...string) models.Trigger {
	return models.Trigger{
		Name:         "t",
		Action:       models.ActionComment,
		CommentMode:  models.CommentModeManual,
		CommentTexts: texts,
	}
}

func TestManualEmptyPoolFallsBack(t *testing.T) {
	r := NewCommentResolver(nil, rand.New(rand.NewSource(1)))
	got := r.Resolve(context.Background(), manualTrigger(), "")
	require.Equal(t, "Cool!", got)

	// Blank entries are filtered before the pool is considered.
	got = r.Resolve(context.Background(), manualTrigger("", "  "), "")
	require.Equal(t, "Cool!", got)
}

func TestManualNeverRepeatsBackToBack(t *testing.T) {
	r := NewCommentResolver(nil, rand.New(rand.NewSource(42)))
	trigger := manualTrigger("nice", "love it", "so good")

	last := ""
	for i := 0; i < 50; i++ {
		got := r.Resolve(context.Background(), trigger, last)
		require.NotEmpty(t, got)
		if last != "" {
			require.NotEqual(t, last, got, "draw %d repeated the previous comment", i)
		}
		last = got
	}
}

func TestManualSingleEntryMayRepeat(t *testing.T) {
	r := NewCommentResolver(nil, rand.New(rand.NewSource(7)))
	trigger := manualTrigger("only one")
	for i := 0; i < 5; i++ {
		assert.Equal(t, "only one", r.Resolve(context.Background(), trigger, "only one"))
	}
}

func TestAICommentSanitization(t *testing.T) {
	aiTrigger := models.Trigger{Name: "t", Action: models.ActionComment, CommentMode: models.CommentModeAI}

	cases := []struct {
		name string
		gen  stubGenerator
		want string
	}{
		{"plain", stubGenerator{text: "this is fire"}, "this is fire"},
		{"quoted", stubGenerator{text: `"this is fire"`}, "this is fire"},
		{"empty", stubGenerator{text: "   "}, "Cool!"},
		{"apology", stubGenerator{text: "Sorry, I can't help with that"}, "Cool!"},
		{"no context", stubGenerator{text: "There is no context to work with"}, "Cool!"},
		{"need more context", stubGenerator{text: "I need more context to answer"}, "Cool!"},
		{"request error", stubGenerator{err: errors.New("boom")}, "Cool!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewCommentResolver(&tc.gen, rand.New(rand.NewSource(1)))
			assert.Equal(t, tc.want, r.Resolve(context.Background(), aiTrigger, ""))
		})
	}
}

func TestAIWithoutGeneratorFallsBack(t *testing.T) {
	r := NewCommentResolver(nil, rand.New(rand.NewSource(1)))
	aiTrigger := models.Trigger{Name: "t", Action: models.ActionComment, CommentMode: models.CommentModeAI}
	assert.Equal(t, "Cool!", r.Resolve(context.Background(), aiTrigger, ""))
}
