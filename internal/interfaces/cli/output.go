package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/turtacn/helmkit/pkg/errors"
)

// Format is an output format selected with --output.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// Printer renders command results in the selected format.
type Printer struct {
	out    io.Writer
	format Format

	good *color.Color
	bad  *color.Color
	warn *color.Color
	key  *color.Color
}

func NewPrinter(out io.Writer, format string, noColor bool) (*Printer, error) {
	f := Format(strings.ToLower(strings.TrimSpace(format)))
	switch f {
	case "":
		f = FormatText
	case FormatText, FormatJSON, FormatTable:
	default:
		return nil, errors.Newf(errors.ErrCodeBadRequest, "unknown output format %q (text, json, table)", format)
	}
	p := &Printer{
		out:    out,
		format: f,
		good:   color.New(color.FgGreen, color.Bold),
		bad:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow),
		key:    color.New(color.FgCyan),
	}
	if noColor {
		for _, c := range []*color.Color{p.good, p.bad, p.warn, p.key} {
			c.DisableColor()
		}
	}
	return p, nil
}

func (p *Printer) Format() Format { return p.format }

func (p *Printer) JSON(v interface{}) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) Linef(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) Good(s string) string { return p.good.Sprint(s) }
func (p *Printer) Bad(s string) string  { return p.bad.Sprint(s) }
func (p *Printer) Warn(s string) string { return p.warn.Sprint(s) }

func (p *Printer) Table(headers []string, rows [][]string) {
	t := tablewriter.NewWriter(p.out)
	t.SetHeader(headers)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	t.AppendBulk(rows)
	t.Render()
}

// Pairs prints key/value rows: a two-column table for table output and
// aligned "key: value" lines otherwise.
func (p *Printer) Pairs(pairs [][2]string) {
	if p.format == FormatTable {
		rows := make([][]string, len(pairs))
		for i, kv := range pairs {
			rows[i] = []string{kv[0], kv[1]}
		}
		p.Table([]string{"FIELD", "VALUE"}, rows)
		return
	}
	width := 0
	for _, kv := range pairs {
		if len(kv[0]) > width {
			width = len(kv[0])
		}
	}
	for _, kv := range pairs {
		label := kv[0] + ":" + strings.Repeat(" ", width-len(kv[0]))
		fmt.Fprintf(p.out, "%s %s\n", p.key.Sprint(label), kv[1])
	}
}
