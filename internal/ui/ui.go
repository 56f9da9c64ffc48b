package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
)

type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ANSI colours of the message kinds.
const (
	colorError   = "1"
	colorSuccess = "2"
	colorWarn    = "3"
	colorStatus  = "4"
)

// UI writes operator-facing messages. Everything except Infof goes to Err, so
// records streamed to Out stay clean.
type UI struct {
	Out          io.Writer
	Err          io.Writer
	Output       *termenv.Output
	ErrOutput    *termenv.Output
	ColorEnabled bool
}

func New(out io.Writer, err io.Writer, mode ColorMode, disableColor bool) *UI {
	output := termenv.NewOutput(out)
	errOutput := termenv.NewOutput(err)

	colorEnabled := shouldEnableColor(errOutput, mode, disableColor)
	return &UI{
		Out:          out,
		Err:          err,
		Output:       output,
		ErrOutput:    errOutput,
		ColorEnabled: colorEnabled,
	}
}

func shouldEnableColor(output *termenv.Output, mode ColorMode, disableColor bool) bool {
	if disableColor {
		return false
	}

	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}

	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return output.ColorProfile() != termenv.Ascii
	}
}

func (u *UI) styled(output *termenv.Output, color string, bold bool, format string, args []any) string {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	if !u.ColorEnabled {
		return msg
	}
	style := output.String(msg)
	if color != "" {
		style = style.Foreground(output.Color(color))
	}
	if bold {
		style = style.Bold()
	}
	return style.String()
}

func (u *UI) Errorf(format string, args ...any) {
	fmt.Fprintln(u.Err, u.styled(u.ErrOutput, colorError, false, format, args))
}

func (u *UI) Warnf(format string, args ...any) {
	fmt.Fprintln(u.Err, u.styled(u.ErrOutput, colorWarn, false, format, args))
}

// Statusf writes a progress line.
func (u *UI) Statusf(format string, args ...any) {
	fmt.Fprintln(u.Err, u.styled(u.ErrOutput, colorStatus, false, format, args))
}

func (u *UI) Successf(format string, args ...any) {
	fmt.Fprintln(u.Err, u.styled(u.ErrOutput, colorSuccess, false, format, args))
}

// Promptf writes an inline prompt without a trailing newline.
func (u *UI) Promptf(format string, args ...any) {
	fmt.Fprint(u.Err, u.styled(u.ErrOutput, "", true, format, args))
}

// Infof writes command output meant for Out.
func (u *UI) Infof(format string, args ...any) {
	fmt.Fprintln(u.Out, u.styled(u.Output, colorStatus, false, format, args))
}

func NormalizeColorMode(value string) ColorMode {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case string(ColorAlways):
		return ColorAlways
	case string(ColorNever):
		return ColorNever
	default:
		return ColorAuto
	}
}
