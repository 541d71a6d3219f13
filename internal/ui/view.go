package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/actionbus/internal/event/topic"
)

// LogView keeps the most recent bus messages in a ring.
type LogView struct {
	lines []string
	next  int
	full  bool
	now   func() time.Time
}

// NewLogView creates a view keeping at most n lines.
func NewLogView(n int) *LogView {
	if n < 1 {
		n = 1
	}
	return &LogView{lines: make([]string, n), now: time.Now}
}

// Add records a message.
func (v *LogView) Add(t topic.Topic, payload any) {
	line := v.now().Format("15:04:05.000") + " " + string(t)
	if payload != nil {
		line += fmt.Sprintf(" %+v", payload)
	}

	v.lines[v.next] = line
	v.next++
	if v.next == len(v.lines) {
		v.next = 0
		v.full = true
	}
}

// Lines returns the recorded lines, oldest first.
func (v *LogView) Lines() []string {
	if !v.full {
		return append([]string(nil), v.lines[:v.next]...)
	}
	out := make([]string, 0, len(v.lines))
	out = append(out, v.lines[v.next:]...)
	return append(out, v.lines[:v.next]...)
}

// Len returns the number of recorded lines.
func (v *LogView) Len() int {
	if v.full {
		return len(v.lines)
	}
	return v.next
}

var (
	headerStyle = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite).Bold(true)
	logStyle    = tcell.StyleDefault
	statusStyle = tcell.StyleDefault.Reverse(true)
)

// drawText writes s at (x, y), clipped to width, and pads the rest of the
// row with spaces in style.
func drawText(s tcell.Screen, x, y, width int, style tcell.Style, text string) {
	col := x
	for _, r := range text {
		if col >= x+width {
			return
		}
		s.SetContent(col, y, r, nil, style)
		col++
	}
	for ; col < x+width; col++ {
		s.SetContent(col, y, ' ', nil, style)
	}
}
