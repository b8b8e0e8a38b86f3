package taskdoc

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/harrisonrobin/hunt/pkg/model"
	"github.com/harrisonrobin/hunt/pkg/util"
)

var fieldRegex = regexp.MustCompile(`^([A-Za-z]+)\s*:\s*(.*)$`)

// order of the header fields; intervals come last.
var fieldOrder = map[string]int{
	fieldName:        0,
	fieldEstimate:    1,
	fieldDescription: 2,
	fieldFinished:    3,
	fieldInterval:    4,
}

var requiredFields = []string{fieldName, fieldEstimate, fieldFinished}

// localLayout is accepted for hand-written timestamps without an offset.
const localLayout = "2006-01-02 15:04:05"

type parser struct {
	seen      map[string]int
	stage     int
	name      string
	estimate  time.Duration
	desc      string
	finished  bool
	intervals []model.Interval
}

// Parse reads an edited rendering back into an EditSet against the original task. Grammar
// problems fail with a *model.ParseError naming the line; a result that breaks a task
// invariant fails with a *model.InvalidEditError. Nothing is applied on failure.
func Parse(text string, original *model.Task) (*EditSet, error) {
	p := &parser{seen: make(map[string]int)}

	// Some editors save with a byte order mark.
	text = strings.TrimPrefix(text, "\ufeff")
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := p.parseLine(lineNo, line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &model.ParseError{Line: lineNo + 1, Reason: err.Error()}
	}

	for _, f := range requiredFields {
		if _, ok := p.seen[f]; !ok {
			return nil, &model.ParseError{Line: lineNo + 1, Reason: fmt.Sprintf("missing required field %q", f)}
		}
	}

	edit := &EditSet{
		Name:        p.name,
		Estimate:    p.estimate,
		Description: p.desc,
		Finished:    p.finished,
		Intervals:   p.intervals,
	}
	edited := edit.Apply(original)
	if err := edited.Validate(); err != nil {
		return nil, err
	}
	edit.Changes = diffIntervals(original.Intervals, p.intervals)
	return edit, nil
}

func (p *parser) parseLine(lineNo int, line string) error {
	m := fieldRegex.FindStringSubmatch(line)
	if m == nil {
		return &model.ParseError{Line: lineNo, Reason: fmt.Sprintf("unrecognized line %q, expected <field>: <value>", line)}
	}
	field := strings.ToLower(m[1])
	value := strings.TrimSpace(m[2])

	idx, ok := fieldOrder[field]
	if !ok {
		return &model.ParseError{Line: lineNo, Reason: fmt.Sprintf("unknown field %q", m[1])}
	}
	if field != fieldInterval {
		if prev, dup := p.seen[field]; dup {
			return &model.ParseError{Line: lineNo, Reason: fmt.Sprintf("field %q already given on line %d", field, prev)}
		}
	}
	if idx < p.stage {
		return &model.ParseError{Line: lineNo, Reason: fmt.Sprintf("field %q is out of order, expected name, estimate, description, finished, then intervals", field)}
	}
	p.stage = idx
	p.seen[field] = lineNo

	switch field {
	case fieldName:
		if value == "" {
			return &model.ParseError{Line: lineNo, Reason: "name must not be empty"}
		}
		p.name = value
	case fieldEstimate:
		d, err := util.ParseDuration(value)
		if err != nil {
			return &model.ParseError{Line: lineNo, Reason: err.Error()}
		}
		p.estimate = d
	case fieldDescription:
		p.desc = unescape(value)
	case fieldFinished:
		b, err := parseBool(value)
		if err != nil {
			return &model.ParseError{Line: lineNo, Reason: err.Error()}
		}
		p.finished = b
	case fieldInterval:
		iv, err := parseInterval(value)
		if err != nil {
			return &model.ParseError{Line: lineNo, Reason: err.Error()}
		}
		p.intervals = append(p.intervals, iv)
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1":
		return true, nil
	case "false", "no", "n", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid finished value %q, expected true or false", s)
}

func parseInterval(value string) (model.Interval, error) {
	startText, stopText, hasStop := strings.Cut(value, " - ")
	start, err := ParseTime(startText)
	if err != nil {
		return model.Interval{}, fmt.Errorf("invalid interval start: %w", err)
	}
	iv := model.Interval{Start: start}
	stopText = strings.TrimSpace(stopText)
	if !hasStop || strings.EqualFold(stopText, OpenSentinel) {
		return iv, nil
	}
	stop, err := ParseTime(stopText)
	if err != nil {
		return model.Interval{}, fmt.Errorf("invalid interval stop: %w", err)
	}
	iv.Stop = &stop
	return iv, nil
}

// ParseTime reads a timestamp in TimeLayout, or without the offset in local time.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(localLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a timestamp like %s", s, TimeLayout)
	}
	return t, nil
}
