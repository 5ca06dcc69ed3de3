// Package profanity はユーザー名などの公開テキストに対する不適切語チェックを提供する。
package profanity

import "strings"

// FilterService は不適切語チェックのインターフェースを定義する。
type FilterService interface {
	// IsClean は入力に不適切語が含まれない場合にtrueを返す。
	// 照合は大文字小文字を区別せず、部分文字列一致で行う。
	IsClean(s string) bool
}

// defaultWords はデフォルトの不適切語リスト。
// 公開プロフィールのユーザー名に使わせたくない語の最小セット。
var defaultWords = []string{
	"admin",
	"moderator",
	"support",
	"official",
	"fuck",
	"shit",
	"bitch",
	"cunt",
	"nigger",
	"faggot",
}

// filter はFilterServiceの実装。
type filter struct {
	words []string
}

// NewFilter はデフォルトの語リストを持つFilterServiceを生成する。
func NewFilter() *filter {
	return &filter{words: defaultWords}
}

// NewFilterWithWords は指定の語リストを持つFilterServiceを生成する。
func NewFilterWithWords(words []string) *filter {
	lowered := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			lowered = append(lowered, w)
		}
	}
	return &filter{words: lowered}
}

// IsClean は入力に不適切語が含まれない場合にtrueを返す。
func (f *filter) IsClean(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range f.words {
		if strings.Contains(lower, w) {
			return false
		}
	}
	return true
}

// compile-time interface check
var _ FilterService = (*filter)(nil)
