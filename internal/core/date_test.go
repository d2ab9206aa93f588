package core

import (
	"testing"
	"time"
)

func TestDate_AddMonths(t *testing.T) {
	tests := []struct {
		name string
		in   Date
		n    int
		want Date
	}{
		{"plain", NewDate(2023, 1, 15), 1, NewDate(2023, 2, 15)},
		{"year rollover", NewDate(2023, 11, 30), 3, NewDate(2024, 2, 29)},
		{"clamp to february", NewDate(2023, 1, 31), 1, NewDate(2023, 2, 28)},
		{"clamp to leap february", NewDate(2024, 1, 31), 1, NewDate(2024, 2, 29)},
		{"clamp to 30 day month", NewDate(2023, 3, 31), 1, NewDate(2023, 4, 30)},
		{"backwards", NewDate(2023, 3, 31), -1, NewDate(2023, 2, 28)},
		{"backwards across year", NewDate(2023, 1, 15), -12, NewDate(2022, 1, 15)},
		{"backwards into december", NewDate(2023, 2, 10), -3, NewDate(2022, 11, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.AddMonths(tt.n); !got.Equal(tt.want) {
				t.Errorf("AddMonths(%d) = %s, want %s", tt.n, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil || !d.Equal(NewDate(2024, 2, 29)) {
		t.Fatalf("ParseDate = %v, %v", d, err)
	}
	d, err = ParseDate("2024-02-29T10:11:12Z")
	if err != nil || !d.Equal(NewDate(2024, 2, 29)) {
		t.Fatalf("ParseDate with time = %v, %v", d, err)
	}
	if _, err := ParseDate("2024-13-01"); err == nil {
		t.Fatal("expected error for month 13")
	}
}

func TestDateOf_DropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	got := DateOf(time.Date(2024, 3, 1, 23, 59, 0, 0, loc))
	if !got.Equal(NewDate(2024, 3, 1)) {
		t.Fatalf("DateOf = %s", got)
	}
	if got.Location() != time.UTC || got.Hour() != 0 {
		t.Fatalf("DateOf should be UTC midnight, got %v", got.Time)
	}
}

func TestYearMonthBounds(t *testing.T) {
	ym := YearMonth{Year: 2024, Month: 2}
	if ym.First().String() != "2024-02-01" || ym.Last().String() != "2024-02-29" {
		t.Fatalf("bounds = %s..%s", ym.First(), ym.Last())
	}
	set := MonthSet{}
	set.Add(YearMonth{2024, 3})
	set.Add(YearMonth{2023, 12})
	set.Add(YearMonth{2024, 3})
	sorted := set.Sorted()
	if len(sorted) != 2 || sorted[0] != (YearMonth{2023, 12}) {
		t.Fatalf("Sorted = %v", sorted)
	}
}
