// Package quiz holds the free-tier limit policy, the quiz session state
// machine and scoring. It has no I/O; stores and transports live in the
// repository and service packages.
package quiz

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode 测验模式
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeTimed    Mode = "timed"
	ModePractice Mode = "practice"
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeStandard, ModeTimed, ModePractice}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeStandard, ModeTimed, ModePractice:
		return m, nil
	default:
		return "", fmt.Errorf("unknown quiz mode %q", s)
	}
}

// Tier 用户订阅等级
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// OptionTag is one of a, b, c, d.
type OptionTag string

const (
	OptionA OptionTag = "a"
	OptionB OptionTag = "b"
	OptionC OptionTag = "c"
	OptionD OptionTag = "d"
)

// ParseOptionTag normalizes case and surrounding space.
func ParseOptionTag(s string) (OptionTag, bool) {
	switch t := OptionTag(strings.ToLower(strings.TrimSpace(s))); t {
	case OptionA, OptionB, OptionC, OptionD:
		return t, true
	default:
		return "", false
	}
}

// Question is the read-only view of a bank question used during a session.
type Question struct {
	ID      uint
	Prompt  string
	Options [4]string
	Correct OptionTag
}

// Actor is either a signed-in user or an anonymous guest.
type Actor struct {
	UserID  uint
	GuestID string
}

func UserActor(id uint) Actor     { return Actor{UserID: id} }
func GuestActor(id string) Actor  { return Actor{GuestID: id} }
func (a Actor) Known() bool       { return a.UserID != 0 }
func (a Actor) Valid() bool       { return a.UserID != 0 || a.GuestID != "" }
func (a Actor) Same(b Actor) bool { return a.UserID == b.UserID && a.GuestID == b.GuestID }

// ID is the counter namespace key for the actor.
func (a Actor) ID() string {
	if a.Known() {
		return strconv.FormatUint(uint64(a.UserID), 10)
	}
	return a.GuestID
}
