package timezone

import (
	"testing"
	"time"
)

func TestParseTimezone(t *testing.T) {
	tests := []struct {
		name    string
		tz      string
		wantErr bool
	}{
		{name: "UTC", tz: "UTC"},
		{name: "empty string defaults to UTC", tz: ""},
		{name: "Europe/Moscow", tz: "Europe/Moscow"},
		{name: "Asia/Yekaterinburg", tz: "Asia/Yekaterinburg"},
		{name: "invalid timezone", tz: "Invalid/Timezone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseTimezone(tt.tz)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseTimezone() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if loc == nil {
				t.Errorf("ParseTimezone() returned nil location")
			}
		})
	}
}

func TestIsValidTimezone(t *testing.T) {
	if !IsValidTimezone("Europe/Moscow") {
		t.Errorf("IsValidTimezone(Europe/Moscow) = false")
	}
	if IsValidTimezone("Mars/Olympus") {
		t.Errorf("IsValidTimezone(Mars/Olympus) = true")
	}
}

func TestStartOfDay(t *testing.T) {
	// 2025-01-21 22:30 UTC is already 2025-01-22 01:30 in Moscow.
	testTime := time.Date(2025, 1, 21, 22, 30, 0, 0, time.UTC)

	got := StartOfDay(testTime, LocationMoscow)

	want := time.Date(2025, 1, 21, 21, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("StartOfDay() = %v, want %v", got, want)
	}
	if got.Location() != LocationMoscow {
		t.Errorf("StartOfDay() location = %v, want %v", got.Location(), LocationMoscow)
	}
}

func TestTargetDate(t *testing.T) {
	now := time.Date(2026, 10, 19, 23, 50, 0, 0, LocationMoscow)

	tests := []struct {
		name    string
		offset  int
		wantDay string
	}{
		{"today", 0, "19.10.2026"},
		{"tomorrow", 1, "20.10.2026"},
		{"yesterday", -1, "18.10.2026"},
		{"month rollover", 13, "01.11.2026"},
		{"year rollover", 74, "01.01.2027"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TargetDate(now, tt.offset, LocationMoscow)
			if s := FormatDate(got, LocationMoscow); s != tt.wantDay {
				t.Errorf("TargetDate() = %v, want %v", s, tt.wantDay)
			}
			if got.Hour() != 0 || got.Minute() != 0 {
				t.Errorf("TargetDate() not at midnight: %v", got)
			}
		})
	}
}

func TestNowInTimezone(t *testing.T) {
	got := NowInTimezone(LocationMoscow)
	if got.Location() != LocationMoscow {
		t.Errorf("NowInTimezone() location = %v, want %v", got.Location(), LocationMoscow)
	}
}
