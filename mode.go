package fscache

import (
	"fmt"
	"strings"
)

// Mode selects how a Cache treats wrapped functions.
type Mode int

const (
	// ModeNormal looks results up and stores them.
	ModeNormal Mode = iota
	// ModeClear empties the store when the cache is created, then behaves
	// like ModeNormal.
	ModeClear
	// ModeIgnore disables caching. Path-keyed functions are still called
	// with the canonical path.
	ModeIgnore
)

// String returns the control value that selects the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return ""
	case ModeClear:
		return "clear"
	case ModeIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a control value. The empty string selects ModeNormal.
func ParseMode(s string) (Mode, error) {
	switch strings.TrimSpace(s) {
	case "":
		return ModeNormal, nil
	case "clear":
		return ModeClear, nil
	case "ignore":
		return ModeIgnore, nil
	default:
		return ModeNormal, fmt.Errorf("%w: %q (known values are \"\", \"clear\", \"ignore\")", ErrInvalidMode, s)
	}
}
