package layout

import (
	"fmt"
	"strings"
)

const (
	DefaultIndentWidth = 4
	DefaultMinGap      = 2
	minGap             = 2
)

type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

func (a Alignment) String() string {
	if a == AlignRight {
		return "right"
	}
	return "left"
}

// ParseAlignment accepts "left" or "right", case-insensitively.
func ParseAlignment(s string) (Alignment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left":
		return AlignLeft, nil
	case "right":
		return AlignRight, nil
	default:
		return AlignLeft, fmt.Errorf("unknown amount alignment %q (want left or right)", s)
	}
}

// Config holds the style rules. The zero value is not usable directly;
// start from DefaultConfig.
type Config struct {
	IndentWidth int
	MinGap      int
	AmountAlign Alignment
}

func DefaultConfig() Config {
	return Config{
		IndentWidth: DefaultIndentWidth,
		MinGap:      DefaultMinGap,
		AmountAlign: AlignLeft,
	}
}

// Normalize clamps out-of-range values to the nearest usable one.
func (c Config) Normalize() Config {
	if c.IndentWidth < 1 {
		c.IndentWidth = DefaultIndentWidth
	}
	if c.MinGap < minGap {
		c.MinGap = minGap
	}
	if c.AmountAlign != AlignRight {
		c.AmountAlign = AlignLeft
	}
	return c
}
