// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザー入力テキスト（作品タイトル、プロフィールの
// ユーザー名・肩書き、お題テキスト）をサニタイズし、XSS攻撃などの
// セキュリティリスクからユーザーを保護する。
// bluemondayライブラリのStrictPolicyにより全てのHTMLタグを除去し、
// プレーンテキストのみを保存する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はテキストコンテンツのサニタイズ機能のインターフェースを定義する。
// ユーザー入力の保存前に使用される。
type ContentSanitizerService interface {
	// SanitizeText は入力文字列から全てのHTMLタグを除去し、
	// 前後の空白をトリムしたプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たないため、script, iframe, img等の
// 全てのタグとon*イベント属性が除去される。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は入力文字列から全てのHTMLタグを除去したプレーンテキストを返す。
// StrictPolicyはテキストをHTMLエンティティにエスケープするため、
// 保存用のプレーンテキストに戻すためにアンエスケープする。
// 出力はJSONレスポンスおよびHTMLテンプレート側で再度エスケープされる。
func (s *contentSanitizer) SanitizeText(raw string) string {
	stripped := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
