// Package interaction はレシピへのコメント・評価・不適切報告を扱う。
package interaction

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/recipebook/internal/model"
)

const (
	maxTextLength = 1000
	minRating     = 1
	maxRating     = 5
)

// Action はユーザーがレシピに対して行う操作。
// Comment、Rating、AbuseReportのいずれか。
type Action interface {
	// Kind は永続化時の種別を返す。
	Kind() model.InteractionKind
	// Describe は操作を人が読める一文で表す。
	Describe(userID int64) string

	fill(in *model.Interaction)
}

// Comment はフィードバックコメント。
type Comment struct {
	Text string
}

func (Comment) Kind() model.InteractionKind { return model.InteractionComment }

func (c Comment) Describe(userID int64) string {
	return fmt.Sprintf("User %d commented: %s", userID, c.Text)
}

func (c Comment) fill(in *model.Interaction) { in.Text = c.Text }

// Rating は1〜5の評価。
type Rating struct {
	Stars int
}

func (Rating) Kind() model.InteractionKind { return model.InteractionRating }

func (r Rating) Describe(userID int64) string {
	return fmt.Sprintf("User %d rated this recipe %d/5", userID, r.Stars)
}

func (r Rating) fill(in *model.Interaction) { in.Rating = r.Stars }

// AbuseReport は不適切なレシピの報告。
type AbuseReport struct {
	Reason string
}

func (AbuseReport) Kind() model.InteractionKind { return model.InteractionAbuseReport }

func (a AbuseReport) Describe(userID int64) string {
	return fmt.Sprintf("User %d reported recipe for: %s", userID, a.Reason)
}

func (a AbuseReport) fill(in *model.Interaction) { in.Text = a.Reason }

// Parse はリクエストの種別・本文・評価値からActionを組み立てる。
func Parse(kind string, text string, rating int) (Action, error) {
	text = strings.TrimSpace(text)

	var action Action
	switch model.InteractionKind(kind) {
	case model.InteractionComment:
		action = Comment{Text: text}
	case model.InteractionRating:
		action = Rating{Stars: rating}
	case model.InteractionAbuseReport:
		action = AbuseReport{Reason: text}
	default:
		return nil, model.NewInvalidInteractionError(fmt.Sprintf("不明な種別です: %q", kind))
	}
	if err := validate(action); err != nil {
		return nil, err
	}
	return action, nil
}

func validate(action Action) error {
	switch a := action.(type) {
	case Comment:
		return validateText(a.Text, "コメント")
	case AbuseReport:
		return validateText(a.Reason, "報告理由")
	case Rating:
		if a.Stars < minRating || a.Stars > maxRating {
			return model.NewInvalidInteractionError(fmt.Sprintf("評価は%d〜%dで指定してください: %d", minRating, maxRating, a.Stars))
		}
	}
	return nil
}

func validateText(text, label string) error {
	if text == "" {
		return model.NewInvalidInteractionError(label + "を入力してください")
	}
	if utf8.RuneCountInString(text) > maxTextLength {
		return model.NewInvalidInteractionError(fmt.Sprintf("%sは%d文字以内で入力してください", label, maxTextLength))
	}
	return nil
}

// FromModel は保存済みのインタラクションをActionに戻す。
func FromModel(in *model.Interaction) (Action, error) {
	switch in.Kind {
	case model.InteractionComment:
		return Comment{Text: in.Text}, nil
	case model.InteractionRating:
		return Rating{Stars: in.Rating}, nil
	case model.InteractionAbuseReport:
		return AbuseReport{Reason: in.Text}, nil
	}
	return nil, fmt.Errorf("unknown interaction kind: %q", in.Kind)
}
