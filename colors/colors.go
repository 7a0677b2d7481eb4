package colors

import "github.com/fatih/color"

var (
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
)

// Status colours an HTTP status code for request logs.
func Status(code int) string {
	switch {
	case code >= 500:
		return Red(code)
	case code >= 400:
		return Yellow(code)
	default:
		return Green(code)
	}
}
