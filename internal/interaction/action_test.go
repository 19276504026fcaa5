package interaction

import (
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/recipebook/internal/model"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   string
	}{
		{"comment", Comment{Text: "Great!"}, "User 1 commented: Great!"},
		{"rating", Rating{Stars: 4}, "User 1 rated this recipe 4/5"},
		{"abuse report", AbuseReport{Reason: "spam"}, "User 1 reported recipe for: spam"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.action.Describe(1); got != tt.want {
				t.Errorf("Describe = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		kind   string
		text   string
		rating int
		want   Action
	}{
		{"comment", "  tasty  ", 0, Comment{Text: "tasty"}},
		{"rating", "", 1, Rating{Stars: 1}},
		{"rating", "", 5, Rating{Stars: 5}},
		{"abuse_report", "copied", 0, AbuseReport{Reason: "copied"}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			got, err := Parse(tt.kind, tt.text, tt.rating)
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		text   string
		rating int
	}{
		{"unknown kind", "like", "x", 0},
		{"empty comment", "comment", "   ", 0},
		{"rating zero", "rating", "", 0},
		{"rating six", "rating", "", 6},
		{"empty report", "abuse_report", "", 0},
		{"long comment", "comment", strings.Repeat("あ", maxTextLength+1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.kind, tt.text, tt.rating)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidInteraction {
				t.Errorf("expected INVALID_INTERACTION, got %v", err)
			}
		})
	}
}

func TestFromModel(t *testing.T) {
	got, err := FromModel(&model.Interaction{Kind: model.InteractionRating, Rating: 3})
	if err != nil {
		t.Fatalf("FromModel returned error: %v", err)
	}
	if got != (Rating{Stars: 3}) {
		t.Errorf("FromModel = %#v", got)
	}

	if _, err := FromModel(&model.Interaction{Kind: "bogus"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}
