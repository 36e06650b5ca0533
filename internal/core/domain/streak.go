package domain

import (
	"fmt"
	"time"
)

const (
	// StreakNamespace is the state-store namespace holding login streaks.
	StreakNamespace = "login-streak"
	// StreakBonusPrefix starts every streak bonus identifier.
	StreakBonusPrefix = "login-streak-bonus-"
	// DateLayout is the calendar-date format of LastLoginDate.
	DateLayout = "2006-01-02"
)

// LoginStreakState tracks consecutive days of activity.
type LoginStreakState struct {
	Streak        int    `json:"streak"`
	LastLoginDate string `json:"lastLoginDate"`
}

// Advance applies a check made on today. It returns the next state and
// whether anything changed.
func (s LoginStreakState) Advance(today time.Time) (LoginStreakState, bool) {
	todayStr := today.Format(DateLayout)
	if s.LastLoginDate == todayStr {
		return s, false
	}

	yesterday := today.AddDate(0, 0, -1).Format(DateLayout)
	if s.LastLoginDate != "" && s.LastLoginDate == yesterday {
		return LoginStreakState{Streak: s.Streak + 1, LastLoginDate: todayStr}, true
	}
	return LoginStreakState{Streak: 1, LastLoginDate: todayStr}, true
}

// IsBonusStreak reports whether streak is a positive multiple of interval.
func IsBonusStreak(streak, interval int) bool {
	return interval > 0 && streak > 0 && streak%interval == 0
}

// StreakBonusIdentifier names the bonus for reaching streak on date.
// It is deterministic so repeated checks mint the same key.
func StreakBonusIdentifier(date string, streak int) string {
	return fmt.Sprintf("%s%s-%d", StreakBonusPrefix, date, streak)
}

// StreakCheck reports the result of one check-and-advance.
type StreakCheck struct {
	State           LoginStreakState `json:"state"`
	Advanced        bool             `json:"advanced"`
	BonusAwarded    bool             `json:"bonusAwarded"`
	BonusIdentifier string           `json:"bonusIdentifier,omitempty"`
	Credit          *MutationResult  `json:"credit,omitempty"`
}
