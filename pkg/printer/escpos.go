package printer

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A
)

// Alignment values for ESC a
const (
	AlignLeft   = 0
	AlignCenter = 1
	AlignRight  = 2
)

// Character sizes for GS !
const (
	SizeNormal = 0x00
	SizeDouble = 0x11
)

// Document accumulates an ESC/POS job together with a plain-text rendering
// of the same lines, used for on-screen receipt previews.
type Document struct {
	job   bytes.Buffer
	plain strings.Builder
	width int
	align int
}

// NewDocument starts a job for a paper width in characters
// (32 for 58mm rolls, 48 for 80mm rolls).
func NewDocument(width int) *Document {
	if width <= 0 {
		width = 32
	}
	d := &Document{width: width}
	d.job.Write([]byte{esc, '@'})
	return d
}

// Width returns the line width in characters
func (d *Document) Width() int { return d.width }

// Align sets alignment for following lines
func (d *Document) Align(a int) *Document {
	d.align = a
	d.job.Write([]byte{esc, 'a', byte(a)})
	return d
}

// Bold toggles emphasized printing
func (d *Document) Bold(on bool) *Document {
	var b byte
	if on {
		b = 1
	}
	d.job.Write([]byte{esc, 'E', b})
	return d
}

// Size sets the character size
func (d *Document) Size(size byte) *Document {
	d.job.Write([]byte{gs, '!', size})
	return d
}

// Line writes one line of text
func (d *Document) Line(s string) *Document {
	s = truncate(s, d.width)
	d.job.WriteString(s)
	d.job.WriteByte(lf)
	d.plain.WriteString(d.pad(s))
	d.plain.WriteByte('\n')
	return d
}

// Linef writes one formatted line
func (d *Document) Linef(format string, args ...any) *Document {
	return d.Line(fmt.Sprintf(format, args...))
}

// Rule writes a full-width separator
func (d *Document) Rule(ch byte) *Document {
	return d.Line(strings.Repeat(string(ch), d.width))
}

// Columns writes left and right text on one line, right text flush right.
func (d *Document) Columns(left, right string) *Document {
	room := d.width - len(right) - 1
	if room < 1 {
		room = 1
	}
	left = truncate(left, room)
	gap := d.width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return d.Line(left + strings.Repeat(" ", gap) + right)
}

// Feed advances the paper n lines
func (d *Document) Feed(n int) *Document {
	for i := 0; i < n; i++ {
		d.job.WriteByte(lf)
		d.plain.WriteByte('\n')
	}
	return d
}

// Cut issues a partial cut
func (d *Document) Cut() *Document {
	d.job.Write([]byte{gs, 'V', 0x01})
	return d
}

// Bytes returns the ESC/POS job
func (d *Document) Bytes() []byte { return d.job.Bytes() }

// Plain returns the text preview
func (d *Document) Plain() string { return d.plain.String() }

func (d *Document) pad(s string) string {
	spare := d.width - len(s)
	if spare <= 0 {
		return s
	}
	switch d.align {
	case AlignCenter:
		return strings.Repeat(" ", spare/2) + s
	case AlignRight:
		return strings.Repeat(" ", spare) + s
	default:
		return s
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "~"
}
