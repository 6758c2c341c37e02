package usecase

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/naka-gawa/codestats-box/internal/domain"
	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Layout defaults for the stats card.
const (
	DefaultWidth      = 54
	DefaultMaxRows    = 10
	DefaultFill       = ':'
	DefaultTotalLabel = "Total XP"

	// MinWidth is the narrowest card the formatter will lay out.
	MinWidth = 20

	ellipsis = "…"
)

// widthCondition measures display width with East Asian ambiguous width
// pinned off, so widths never depend on the locale.
func widthCondition() *runewidth.Condition {
	cond := runewidth.NewCondition()
	cond.EastAsianWidth = false
	return cond
}

// StringWidth returns the number of columns s takes on the card.
func StringWidth(s string) int {
	return widthCondition().StringWidth(s)
}

// FormatConfig controls the layout of the stats card.
type FormatConfig struct {
	// Width is the display width of every line, in terminal columns.
	Width int
	// MaxRows caps the number of skill rows below the total row.
	MaxRows int
	// Fill pads the gap between label and value. It must be one column wide.
	Fill rune
	// TotalLabel labels the first row.
	TotalLabel string
}

// DefaultFormatConfig returns the layout the published cards use.
func DefaultFormatConfig() FormatConfig {
	return FormatConfig{
		Width:      DefaultWidth,
		MaxRows:    DefaultMaxRows,
		Fill:       DefaultFill,
		TotalLabel: DefaultTotalLabel,
	}
}

// Formatter renders a StatsSnapshot into fixed-width lines.
type Formatter struct {
	cfg     FormatConfig
	cond    *runewidth.Condition
	printer *message.Printer
}

// row is a label and its formatted value before padding.
type row struct {
	label string
	value string
}

// NewFormatter creates a Formatter. Out-of-range settings are clamped so
// that every produced line still has exactly cfg.Width columns.
func NewFormatter(cfg FormatConfig) *Formatter {
	cond := widthCondition()

	if cfg.Width < MinWidth {
		cfg.Width = MinWidth
	}
	if cfg.MaxRows < 0 {
		cfg.MaxRows = 0
	}
	if cfg.Fill == 0 || cond.RuneWidth(cfg.Fill) != 1 {
		cfg.Fill = DefaultFill
	}
	if cfg.TotalLabel == "" {
		cfg.TotalLabel = DefaultTotalLabel
	}
	return &Formatter{
		cfg:     cfg,
		cond:    cond,
		printer: message.NewPrinter(language.English),
	}
}

// Config returns the effective layout.
func (f *Formatter) Config() FormatConfig {
	return f.cfg
}

// Format renders the total row followed by the top skills for mode.
// It returns exactly 1 + min(len(skills), MaxRows) lines.
func (f *Formatter) Format(snapshot *domain.StatsSnapshot, mode domain.Mode) ([]string, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMode, string(mode))
	}
	if snapshot == nil {
		return nil, errors.New("no stats snapshot to format")
	}

	skills := f.topSkills(snapshot.Skills, mode)
	rows := make([]row, 0, 1+len(skills))
	rows = append(rows, row{
		label: f.cfg.TotalLabel,
		value: f.value(mode, snapshot.TotalLevel, snapshot.TotalXP, snapshot.RecentTotalXP),
	})
	for _, s := range skills {
		rows = append(rows, row{
			label: s.Name,
			value: f.value(mode, s.Level, s.TotalXP, s.RecentXP),
		})
	}

	return lo.Map(rows, func(r row, _ int) string {
		return f.line(r)
	}), nil
}

// topSkills sorts a copy of skills by the mode's key, keeping source order on ties.
func (f *Formatter) topSkills(skills []domain.SkillStat, mode domain.Mode) []domain.SkillStat {
	sorted := make([]domain.SkillStat, len(skills))
	copy(sorted, skills)

	key := func(s domain.SkillStat) int64 { return s.TotalXP }
	if mode == domain.ModeRecentXP {
		key = func(s domain.SkillStat) int64 { return s.RecentXP }
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i]) > key(sorted[j])
	})

	return lo.Subset(sorted, 0, uint(f.cfg.MaxRows))
}

func (f *Formatter) value(mode domain.Mode, level int, xp, recent int64) string {
	switch mode {
	case domain.ModeRecentXP:
		return fmt.Sprintf("lvl %d (%s XP) (+%s)", level, f.number(xp), f.number(recent))
	case domain.ModeXP:
		return fmt.Sprintf("%s XP", f.number(xp))
	default:
		return fmt.Sprintf("lvl %d (%s XP)", level, f.number(xp))
	}
}

// number groups thousands with commas: 1234567 -> "1,234,567".
func (f *Formatter) number(n int64) string {
	return f.printer.Sprintf("%d", n)
}

// line lays out "label ::::: value" in exactly cfg.Width columns.
// The value is never shortened while it fits in Width-3 columns; the label
// gives way first.
func (f *Formatter) line(r row) string {
	width := f.cfg.Width
	label, value := r.label, r.value

	maxValue := width - 3
	if f.cond.StringWidth(value) > maxValue {
		value = f.cond.Truncate(value, maxValue, "")
		label = ""
	}
	valueWidth := f.cond.StringWidth(value)

	maxLabel := width - valueWidth - 3
	switch {
	case maxLabel <= 0:
		label = ""
	case f.cond.StringWidth(label) > maxLabel:
		label = f.cond.Truncate(label, maxLabel, ellipsis)
	}

	fill := width - f.cond.StringWidth(label) - valueWidth - 2
	return label + " " + strings.Repeat(string(f.cfg.Fill), fill) + " " + value
}
