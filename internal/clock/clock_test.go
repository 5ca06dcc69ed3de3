package clock

import (
	"testing"
	"time"
)

func TestDayOf_EasternBoundary(t *testing.T) {
	// UTCの2026-03-11 03:59 は US-Eastern（EDT, UTC-4）では 2026-03-10 23:59
	utc := time.Date(2026, 3, 11, 3, 59, 0, 0, time.UTC)
	if got := DayOf(utc); got != "2026-03-10" {
		t.Errorf("DayOf(%v) = %q, want %q", utc, got, "2026-03-10")
	}

	// UTCの2026-03-11 04:00 は US-Eastern では 2026-03-11 00:00
	utc = time.Date(2026, 3, 11, 4, 0, 0, 0, time.UTC)
	if got := DayOf(utc); got != "2026-03-11" {
		t.Errorf("DayOf(%v) = %q, want %q", utc, got, "2026-03-11")
	}
}

func TestDayOf_WinterOffset(t *testing.T) {
	// 冬時間（EST, UTC-5）: UTCの2026-01-15 04:59 は 2026-01-14
	utc := time.Date(2026, 1, 15, 4, 59, 0, 0, time.UTC)
	if got := DayOf(utc); got != "2026-01-14" {
		t.Errorf("DayOf(%v) = %q, want %q", utc, got, "2026-01-14")
	}
}

func TestParseDay_Valid(t *testing.T) {
	got, err := ParseDay("2026-03-11")
	if err != nil {
		t.Fatalf("ParseDay returned error: %v", err)
	}
	if got.Year() != 2026 || got.Month() != time.March || got.Day() != 11 {
		t.Errorf("ParseDay = %v, want 2026-03-11", got)
	}
}

func TestParseDay_Invalid(t *testing.T) {
	if _, err := ParseDay("03/11/2026"); err == nil {
		t.Error("expected error for invalid day format")
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want int
	}{
		{"同一日", "2026-03-10", "2026-03-10", 0},
		{"翌日", "2026-03-10", "2026-03-11", 1},
		{"2日後", "2026-03-10", "2026-03-12", 2},
		{"月跨ぎ", "2026-02-28", "2026-03-01", 1},
		{"夏時間開始を跨ぐ", "2026-03-07", "2026-03-09", 2},
		{"逆順は負数", "2026-03-11", "2026-03-10", -1},
		{"年跨ぎ", "2025-12-31", "2026-01-01", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DaysBetween(tt.from, tt.to)
			if err != nil {
				t.Fatalf("DaysBetween returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DaysBetween(%q, %q) = %d, want %d", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestDaysBetween_InvalidInput(t *testing.T) {
	if _, err := DaysBetween("invalid", "2026-03-11"); err == nil {
		t.Error("expected error for invalid from day")
	}
	if _, err := DaysBetween("2026-03-11", "invalid"); err == nil {
		t.Error("expected error for invalid to day")
	}
}

func TestSameMonth(t *testing.T) {
	a := time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC)
	b := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	if !SameMonth(a, b) {
		t.Error("expected same month for two March timestamps")
	}

	// UTCの2026-04-01 03:00 は US-Eastern では 2026-03-31 23:00（まだ3月）
	c := time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC)
	if !SameMonth(a, c) {
		t.Error("expected same month: UTC April 1 03:00 is still March in Eastern")
	}

	d := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	if SameMonth(a, d) {
		t.Error("expected different months")
	}
}
