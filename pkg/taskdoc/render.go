// Package taskdoc renders a task into the line-oriented text a user edits and parses the
// edited text back into a validated EditSet.
package taskdoc

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/hunt/pkg/model"
	"github.com/harrisonrobin/hunt/pkg/util"
)

// TimeLayout is the timestamp format of interval lines.
const TimeLayout = "2006-01-02 15:04:05 -0700"

// OpenSentinel marks an interval that has not been stopped.
const OpenSentinel = "open"

const (
	fieldName        = "name"
	fieldEstimate    = "estimate"
	fieldDescription = "description"
	fieldFinished    = "finished"
	fieldInterval    = "interval"
)

var header = []string{
	"# Edit the task below and save to apply. Lines starting with '#' are ignored.",
	"# estimate accepts 2h, 1.5h, 1h30m or 45m.",
	"# interval: " + TimeLayout + " - " + TimeLayout + `, or "- open" for the running one.`,
	"# Add interval lines to log forgotten work, delete them to drop entries.",
}

// Render returns the canonical text of a task. Parsing it unchanged reproduces the task.
func Render(t *model.Task) string {
	var b strings.Builder
	for _, line := range header {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	writeField(&b, fieldName, t.Name)
	writeField(&b, fieldEstimate, util.FormatDuration(t.Estimate))
	writeField(&b, fieldDescription, escape(t.Description))
	writeField(&b, fieldFinished, fmt.Sprintf("%t", t.Finished))
	b.WriteByte('\n')
	for _, iv := range t.Intervals {
		writeField(&b, fieldInterval, formatInterval(iv))
	}
	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	b.WriteString(name)
	b.WriteByte(':')
	if value != "" {
		b.WriteByte(' ')
		b.WriteString(value)
	}
	b.WriteByte('\n')
}

func formatInterval(iv model.Interval) string {
	stop := OpenSentinel
	if iv.Stop != nil {
		stop = FormatTime(*iv.Stop)
	}
	return FormatTime(iv.Start) + " - " + stop
}

// FormatTime formats a timestamp the way interval lines carry it.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// escape keeps multi-line descriptions on a single line.
func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
	return r.Replace(s)
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
