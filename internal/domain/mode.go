package domain

import (
	"fmt"
	"strings"
)

// Mode selects what the stats card shows for every row.
type Mode string

const (
	// ModeLevelXP shows level and total XP.
	ModeLevelXP Mode = "level-xp"
	// ModeRecentXP shows level, total XP and the XP earned recently.
	ModeRecentXP Mode = "recent-xp"
	// ModeXP shows total XP only.
	ModeXP Mode = "xp"

	// DefaultMode is used when the caller supplies no mode at all.
	DefaultMode = ModeLevelXP
)

// Modes lists every recognized mode.
var Modes = []Mode{ModeLevelXP, ModeRecentXP, ModeXP}

var gistTitles = map[Mode]string{
	ModeLevelXP:  "💻 My Code::Stats XP (Top Languages)",
	ModeRecentXP: "💻 My Code::Stats XP (Recent Languages)",
	ModeXP:       "💻 My Code::Stats XP (Top Languages)",
}

// ParseMode validates a mode name. An empty string yields DefaultMode.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultMode, nil
	}
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q (want one of %s)", ErrInvalidMode, s, modeNames())
	}
	return m, nil
}

// Valid reports whether m is one of the recognized modes.
func (m Mode) Valid() bool {
	_, ok := gistTitles[m]
	return ok
}

// Title is the gist description used for the mode.
func (m Mode) Title() string {
	return gistTitles[m]
}

func (m Mode) String() string { return string(m) }

func modeNames() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
