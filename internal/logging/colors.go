package logging

import "github.com/fatih/color"

// Level colors. color.NoColor is set automatically when stderr is not a
// terminal, in which case these print plain text.
var (
	colorTimestamp = color.New(color.FgWhite)
	colorError     = color.New(color.FgRed, color.Bold)
	colorWarn      = color.New(color.FgRed)
	colorInfo      = color.New(color.Reset)
	colorDebug     = color.New(color.FgGreen)
	colorTrace     = color.New(color.FgYellow)
)

// DisableColor turns off colored output for all loggers, e.g. when logging to
// a file.
func DisableColor() {
	color.NoColor = true
}
