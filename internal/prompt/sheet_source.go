package prompt

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/hitoshi/doodleprompt/internal/clock"
	"github.com/hitoshi/doodleprompt/internal/model"
)

// SheetSource は公開スプレッドシートのCSVエクスポートを解析するソース。
// 行形式: date, prompt[, premium prompt]
// 日付列が"2006-01-02"形式でない行（ヘッダ行を含む）はスキップする。
type SheetSource struct{}

// NewSheetSource はSheetSourceを生成する。
func NewSheetSource() *SheetSource {
	return &SheetSource{}
}

// Kind はソース種別を返す。
func (s *SheetSource) Kind() string {
	return KindSheet
}

// Parse はCSVボディからお題の一覧を抽出する。
func (s *SheetSource) Parse(body []byte) ([]*model.Prompt, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	// 行ごとに列数が揺れても読み進める（プレミアム列は省略可）
	reader.FieldsPerRecord = -1

	prompts := []*model.Prompt{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		if len(record) < 2 {
			continue
		}

		date := strings.TrimSpace(record[0])
		if _, err := clock.ParseDay(date); err != nil {
			// ヘッダ行や日付不正の行はスキップ
			continue
		}

		text := strings.TrimSpace(record[1])
		if text == "" {
			continue
		}

		premiumText := ""
		if len(record) >= 3 {
			premiumText = strings.TrimSpace(record[2])
		}

		prompts = append(prompts, &model.Prompt{
			Date:        date,
			Text:        text,
			PremiumText: premiumText,
			Source:      KindSheet,
		})
	}

	if len(prompts) == 0 {
		return nil, fmt.Errorf("no valid prompt rows in CSV")
	}

	return prompts, nil
}

// compile-time interface check
var _ Source = (*SheetSource)(nil)
