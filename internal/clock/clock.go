// Package clock は正規タイムゾーンによる暦日計算を提供する。
// ストリーク判定とお題選択の「今日」はすべてこのパッケージを経由して解決する。
// 他のコンポーネントがローカル時計から独自に「今日」を計算してはならない。
package clock

import (
	"fmt"
	"time"

	// distrolessイメージにはtzdbが含まれないため埋め込む
	_ "time/tzdata"
)

// DayFormat は暦日の文字列形式。
const DayFormat = "2006-01-02"

// canonicalZone は全暦日計算の基準タイムゾーン。
const canonicalZone = "America/New_York"

var location *time.Location

func init() {
	loc, err := time.LoadLocation(canonicalZone)
	if err != nil {
		panic(fmt.Sprintf("failed to load canonical timezone %s: %v", canonicalZone, err))
	}
	location = loc
}

// Location は正規タイムゾーンのLocationを返す。
func Location() *time.Location {
	return location
}

// Today は現在時刻の正規タイムゾーンにおける暦日を"2006-01-02"形式で返す。
func Today() string {
	return DayOf(time.Now())
}

// DayOf は指定時刻の正規タイムゾーンにおける暦日を"2006-01-02"形式で返す。
func DayOf(t time.Time) string {
	return t.In(location).Format(DayFormat)
}

// ParseDay は"2006-01-02"形式の暦日をパースする。
// 正規タイムゾーンの0時としてtime.Timeを返す。
func ParseDay(day string) (time.Time, error) {
	t, err := time.ParseInLocation(DayFormat, day, location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day format %q: %w", day, err)
	}
	return t, nil
}

// DaysBetween は暦日fromから暦日toまでの日数を返す。
// from == toなら0、toがfromの翌日なら1。toがfromより前なら負数。
// どちらかのパースに失敗した場合はエラーを返す。
func DaysBetween(from, to string) (int, error) {
	ft, err := ParseDay(from)
	if err != nil {
		return 0, err
	}
	tt, err := ParseDay(to)
	if err != nil {
		return 0, err
	}
	// 夏時間切り替えを跨ぐ期間でも暦日差が正しく出るよう、
	// UTC midnightに正規化してから差分を取る
	fd := time.Date(ft.Year(), ft.Month(), ft.Day(), 0, 0, 0, 0, time.UTC)
	td := time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, time.UTC)
	return int(td.Sub(fd).Hours() / 24), nil
}

// SameMonth は2つの時刻が正規タイムゾーンで同じ暦月に属するかを返す。
// ストリークフリーズの月次リセット判定に使用する。
func SameMonth(a, b time.Time) bool {
	al := a.In(location)
	bl := b.In(location)
	return al.Year() == bl.Year() && al.Month() == bl.Month()
}
