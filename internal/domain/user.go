package domain

import (
	"strconv"
	"time"
)

// CoinSeed is the gamification score every new account starts with.
const CoinSeed = 0.10

// ReferralBonus is credited to an inviter's coin score when an invitee
// completes registration.
const ReferralBonus = 10.0

// User represents a player account stored in the database. Balance is kept
// in minor currency units (cents of ETB); Coin is the secondary gamification
// score shown on the leaderboard.
type User struct {
	TelegramID int64
	Username   string
	Phone      string
	Balance    int64
	Coin       float64
	ReferrerID int64 // zero when the user was not invited
	CreatedAt  time.Time
}

// Registered reports whether the user completed registration by sharing a
// phone number. The transition is one-directional: once a phone is on file
// the account never becomes unregistered again.
func (u *User) Registered() bool {
	return u != nil && u.Phone != ""
}

// DisplayName prefers the chosen username and falls back to the numeric id.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return strconv.FormatInt(u.TelegramID, 10)
}
