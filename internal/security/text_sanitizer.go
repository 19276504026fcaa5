// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はレシピの手順説明をHTML断片に埋め込む前に無害化する。
// 手順説明はプレーンテキストとして扱うため、bluemondayのStrictPolicyで
// すべてのタグを除去し、残った文字列をHTMLエスケープする。
package security

import "github.com/microcosm-cc/bluemonday"

// TextSanitizer はbluemondayのStrictPolicyを保持する。
// Policyは生成後に変更しないため、複数goroutineから同時に使用できる。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタグを除去しエスケープ済みのテキストを返す。
// script/styleの中身は丸ごと除去される。空文字列には空文字列を返す。
func (s *TextSanitizer) Sanitize(text string) string {
	if text == "" {
		return ""
	}
	return s.policy.Sanitize(text)
}
