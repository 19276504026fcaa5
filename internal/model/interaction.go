// Package model はドメインモデルを定義する。
package model

import "time"

// InteractionKind はレシピに対するユーザー操作の種別を表す。
type InteractionKind string

const (
	// InteractionComment はフィードバックコメント。
	InteractionComment InteractionKind = "comment"
	// InteractionRating は1〜5の評価。
	InteractionRating InteractionKind = "rating"
	// InteractionAbuseReport は不適切なレシピの報告。
	InteractionAbuseReport InteractionKind = "abuse_report"
)

// Interaction はレシピに対するコメント・評価・報告を表す。
// Kindに応じてText（コメント本文・報告理由）またはRatingのどちらかが意味を持つ。
type Interaction struct {
	ID        int64
	RecipeID  int64
	UserID    int64
	Kind      InteractionKind
	Text      string
	Rating    int
	CreatedAt time.Time
}
