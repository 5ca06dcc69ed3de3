// Package prompt はデイリーお題の取得・解析・提供を提供する。
package prompt

import "github.com/hitoshi/doodleprompt/internal/model"

// ソース種別
const (
	// KindSheet は公開スプレッドシートのCSVエクスポートをソースとする。
	KindSheet = "sheet"
	// KindFeed はRSS/Atomフィードをソースとする。
	KindFeed = "feed"
)

// Source はお題ソースのペイロード解析インターフェース。
// HTTPフェッチ自体はワーカー側が行い、取得済みボディの解析のみを担当する。
type Source interface {
	// Kind はソース種別（"sheet" または "feed"）を返す。
	Kind() string

	// Parse はフェッチ済みボディからお題の一覧を抽出する。
	// 解析不能な行・エントリはスキップし、1件も抽出できない場合はエラーを返す。
	Parse(body []byte) ([]*model.Prompt, error)
}
