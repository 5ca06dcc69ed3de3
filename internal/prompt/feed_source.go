package prompt

import (
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/doodleprompt/internal/clock"
	"github.com/hitoshi/doodleprompt/internal/model"
)

// FeedSource はRSS/Atomフィードをお題ソースとして解析する。
// エントリの公開日時を正規タイムゾーンの暦日に変換し、
// タイトルをお題テキスト、本文をプレミアムお題として扱う。
type FeedSource struct {
	parser *gofeed.Parser
}

// NewFeedSource はFeedSourceを生成する。
func NewFeedSource() *FeedSource {
	return &FeedSource{parser: gofeed.NewParser()}
}

// Kind はソース種別を返す。
func (s *FeedSource) Kind() string {
	return KindFeed
}

// Parse はフィードボディからお題の一覧を抽出する。
// 公開日時のないエントリとタイトルが空のエントリはスキップする。
func (s *FeedSource) Parse(body []byte) ([]*model.Prompt, error) {
	parsed, err := s.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	prompts := []*model.Prompt{}
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published == nil {
			continue
		}

		text := strings.TrimSpace(item.Title)
		if text == "" {
			continue
		}

		prompts = append(prompts, &model.Prompt{
			Date:        clock.DayOf(*published),
			Text:        text,
			PremiumText: strings.TrimSpace(item.Description),
			Source:      KindFeed,
		})
	}

	if len(prompts) == 0 {
		return nil, fmt.Errorf("no valid prompt entries in feed")
	}

	return prompts, nil
}

// compile-time interface check
var _ Source = (*FeedSource)(nil)
