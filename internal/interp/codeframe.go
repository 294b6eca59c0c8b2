package interp

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/gookit/color"
	"golang.org/x/text/width"
)

// ErrorFormat controls how runtime faults render their code frame.
type ErrorFormat struct {
	// Color wraps the frame in ANSI styles.
	Color bool
	// ContextLines is how many lines to show around the failing line.
	ContextLines int
	// TabStop is the tab width used to place the caret.
	TabStop int
}

// DefaultErrorFormat is plain text with one line of context.
func DefaultErrorFormat() ErrorFormat {
	return ErrorFormat{ContextLines: 1, TabStop: 4}
}

var (
	styleDim   = color.New(color.OpFuzzy)
	styleBold  = color.New(color.OpBold)
	styleCaret = color.New(color.FgRed, color.OpBold)
)

// paint applies st regardless of terminal detection so rendered frames
// are reproducible.
func paint(on bool, st color.Style, s string) string {
	if !on {
		return s
	}
	return fmt.Sprintf(color.FullColorTpl, st.String(), s)
}

// codeFrame renders the source around the innermost positioned frame.
// Frames from another file than the registered buffer are skipped.
func (in *Interpreter) codeFrame() string {
	if in.source == nil {
		return ""
	}
	for i := len(in.stack) - 1; i >= 0; i-- {
		f := in.stack[i]
		if f.pos.Line == 0 {
			continue
		}
		if f.pos.File != "" && in.sourceFile != "" && f.pos.File != in.sourceFile {
			return ""
		}
		label := f.pos.File
		if label == "" {
			label = in.sourceFile
		}
		if label == "" {
			label = "<memory>"
		}
		return renderCodeFrame(in.source, label, f.pos.Line, f.pos.Column, in.format)
	}
	return ""
}

func renderCodeFrame(lines []string, label string, line, col int, f ErrorFormat) string {
	if line < 1 || line > len(lines) {
		return ""
	}
	start := max(1, line-f.ContextLines)
	end := min(len(lines), line+f.ContextLines)
	pad := len(strconv.Itoa(end))

	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(paint(f.Color, styleDim, fmt.Sprintf("File %s:%d:%d", label, line, col)))
	for i := start; i <= end; i++ {
		text := lines[i-1]
		marker := " "
		st := styleDim
		if i == line {
			marker = ">"
			st = styleBold
		}
		b.WriteString("\n")
		b.WriteString(paint(f.Color, st, fmt.Sprintf("%s%*d | %s", marker, pad, i, text)))
		if i == line {
			b.WriteString("\n")
			b.WriteString(strings.Repeat(" ", 1+pad+3))
			b.WriteString(strings.Repeat(" ", caretIndent(text, col, f.TabStop)))
			b.WriteString(paint(f.Color, styleCaret, "^"))
		}
	}
	return b.String()
}

// caretIndent is the display width of the first col-1 runes of s.
func caretIndent(s string, col, tabStop int) int {
	runes := []rune(s)
	n := min(max(col-1, 0), len(runes))
	return displayWidth(string(runes[:n]), tabStop)
}

// displayWidth counts terminal cells: tabs advance to the next stop,
// combining marks take none, East Asian wide and fullwidth runes take two.
func displayWidth(s string, tabStop int) int {
	if tabStop < 1 {
		tabStop = 4
	}
	w := 0
	for _, r := range s {
		switch {
		case r == '\t':
			w += tabStop - w%tabStop
		case unicode.In(r, unicode.Mn, unicode.Me):
		default:
			switch width.LookupRune(r).Kind() {
			case width.EastAsianWide, width.EastAsianFullwidth:
				w += 2
			default:
				w++
			}
		}
	}
	return w
}
