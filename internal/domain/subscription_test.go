package domain

import (
	"errors"
	"testing"
	"time"
)

func TestDue_ExactInterval(t *testing.T) {
	now := time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)
	s := Subscription{UserID: 1, Currency: "BTC", IntervalMinutes: 30,
		LastNotifiedAt: now.Add(-1800 * time.Second)}
	if !s.Due(now) {
		t.Fatalf("subscription at exactly one interval must be due")
	}
}

func TestDue_TenSecondsShort(t *testing.T) {
	now := time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)
	s := Subscription{UserID: 1, Currency: "BTC", IntervalMinutes: 30,
		LastNotifiedAt: now.Add(-1790 * time.Second)}
	if s.Due(now) {
		t.Fatalf("10s short of the interval must not be due")
	}
}

func TestDue_InsideTolerance(t *testing.T) {
	now := time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)
	s := Subscription{UserID: 1, Currency: "BTC", IntervalMinutes: 30,
		LastNotifiedAt: now.Add(-1796 * time.Second)}
	if !s.Due(now) {
		t.Fatalf("4s short is inside the 5s tolerance and must be due")
	}
}

func TestParseInterval(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr error
	}{
		{"15", 15, nil},
		{" 30 ", 30, nil},
		{"3", 0, ErrIntervalTooShort},
		{"17", 0, ErrIntervalStep},
		{"abc", 0, ErrIntervalNotNumber},
		{"", 0, ErrIntervalNotNumber},
		{"-5", 0, ErrIntervalTooShort},
	}
	for _, c := range cases {
		got, err := ParseInterval(c.in)
		if !errors.Is(err, c.wantErr) {
			t.Fatalf("ParseInterval(%q): err = %v, want %v", c.in, err, c.wantErr)
		}
		if got != c.want {
			t.Fatalf("ParseInterval(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFormatInterval(t *testing.T) {
	cases := map[int]string{
		5:    "5 min",
		30:   "30 min",
		90:   "90 min",
		120:  "2 h",
		360:  "6 h",
		1440: "1 day",
		2880: "2 days",
	}
	for minutes, want := range cases {
		if got := FormatInterval(minutes); got != want {
			t.Fatalf("FormatInterval(%d) = %q, want %q", minutes, got, want)
		}
	}
}
