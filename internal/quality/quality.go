// Package quality maps a stream quality level to the frame decimation stride.
package quality

import (
	"errors"
	"strings"
)

// Level is the quality selected by the peer at the start of a session.
type Level int

const (
	Low Level = iota + 1
	Medium
	High
)

var ErrUnknownLevel = errors.New("quality: unknown level")

// Stride returns the decimation interval for l: one frame out of every Stride
// frames is kept. Unrecognized levels keep every frame.
func Stride(l Level) int {
	switch l {
	case Low:
		return 100
	case Medium:
		return 10
	default:
		return 1
	}
}

// Keep reports whether the frame at cursor survives decimation.
func Keep(cursor, stride int) bool {
	return cursor%stride == 0
}

// Parse accepts "LD"/"MD"/"HD", "low"/"medium"/"high" and "1"/"2"/"3",
// ignoring case.
func Parse(token string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "ld", "low", "1":
		return Low, nil
	case "md", "medium", "2":
		return Medium, nil
	case "hd", "high", "3":
		return High, nil
	}
	return 0, ErrUnknownLevel
}

func (l Level) Valid() bool {
	return l >= Low && l <= High
}

func (l Level) String() string {
	switch l {
	case Low:
		return "LD"
	case Medium:
		return "MD"
	case High:
		return "HD"
	default:
		return "??"
	}
}
