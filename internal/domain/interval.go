package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinIntervalMinutes is the smallest allowed notification interval.
const MinIntervalMinutes = 5

var (
	ErrIntervalNotNumber = errors.New("interval is not a number")
	ErrIntervalTooShort  = errors.New("interval below minimum")
	ErrIntervalStep      = errors.New("interval not a multiple of 5")
)

// PresetIntervals are the notification intervals offered as buttons,
// in minutes, in display order.
var PresetIntervals = []int{30, 120, 360, 720, 1440}

// ParseInterval parses user-entered text as an interval in minutes.
// Checks run in order: numeric, minimum, multiple of 5 — the caller
// re-prompts on the first failure without changing flow state.
func ParseInterval(text string) (int, error) {
	minutes, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, ErrIntervalNotNumber
	}
	if minutes < MinIntervalMinutes {
		return 0, ErrIntervalTooShort
	}
	if minutes%5 != 0 {
		return 0, ErrIntervalStep
	}
	return minutes, nil
}

// FormatInterval renders an interval in minutes for humans: "30 min",
// "2 h", "1 day".
func FormatInterval(minutes int) string {
	switch {
	case minutes >= 1440 && minutes%1440 == 0:
		d := minutes / 1440
		if d == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", d)
	case minutes >= 60 && minutes%60 == 0:
		return fmt.Sprintf("%d h", minutes/60)
	default:
		return fmt.Sprintf("%d min", minutes)
	}
}
