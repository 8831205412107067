package output

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/nerrad567/devspace-core/internal/space"
)

// ReadingSlot is the collection index that bare numeric lines are sent to.
const ReadingSlot = 1

var pinPattern = regexp.MustCompile(`\d+`)

// Logger defines the logging interface used by the output package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Target receives the status changes decoded from output lines.
// *space.Manager satisfies it.
type Target interface {
	ChangeStatusAt(index int, status space.Status, reading *float64) error
	IndexOf(id string) int
}

// Result classifies how one line was handled.
type Result string

// Line results.
const (
	ResultApplied Result = "applied"
	ResultIgnored Result = "ignored"
	ResultFailed  Result = "failed"
)

// LineOutcome reports what happened to one line of a chunk.
type LineOutcome struct {
	Line   string `json:"line"`
	Result Result `json:"result"`
	Index  int    `json:"index,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Summary reports the outcome of one chunk.
type Summary struct {
	Applied int           `json:"applied"`
	Ignored int           `json:"ignored"`
	Failed  int           `json:"failed"`
	Lines   []LineOutcome `json:"lines"`
}

// Interpreter turns console output from the remote program into device
// status changes:
//
//	"... HIGH ..."  first integer is a pin; its accessory turns ON
//	"... LOW ..."   same lookup; the accessory turns OFF
//	"81"            device at ReadingSlot turns ON with reading 81
//
// Anything else is ignored. The only state it keeps is the accessory table.
// HandleOutputChunk must run on the space event loop.
type Interpreter struct {
	target  Target
	table   *AccessoryTable
	metrics *Metrics
	logger  Logger
}

// NewInterpreter creates an Interpreter that drives target using table.
func NewInterpreter(target Target, table *AccessoryTable) *Interpreter {
	return &Interpreter{
		target: target,
		table:  table,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the interpreter.
func (i *Interpreter) SetLogger(logger Logger) {
	i.logger = logger
}

// SetMetrics attaches Prometheus counters.
func (i *Interpreter) SetMetrics(m *Metrics) {
	i.metrics = m
}

// HandleOutputChunk processes every complete line in text. The text after
// the last newline is treated as a partial line and skipped; it is not
// carried over to the next chunk. A failing line never stops the rest.
func (i *Interpreter) HandleOutputChunk(text string) Summary {
	parts := strings.Split(text, "\n")
	lines := parts[:len(parts)-1]

	var sum Summary
	for _, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")
		out := i.handleLine(line)

		switch out.Result {
		case ResultApplied:
			sum.Applied++
		case ResultFailed:
			sum.Failed++
		default:
			sum.Ignored++
		}
		sum.Lines = append(sum.Lines, out)
		i.metrics.observeLine(out.Result)
	}
	i.metrics.observeChunk()

	if tail := parts[len(parts)-1]; tail != "" {
		i.logger.Debug("partial output line skipped", "fragment", tail)
	}
	return sum
}

func (i *Interpreter) handleLine(line string) LineOutcome {
	out := LineOutcome{Line: line}

	var (
		index   int
		status  space.Status
		reading *float64
		err     error
	)

	switch {
	case strings.Contains(line, "HIGH"):
		status = space.StatusOn
		index, err = i.resolvePin(line)
	case strings.Contains(line, "LOW"):
		status = space.StatusOff
		index, err = i.resolvePin(line)
	default:
		v, ok := parseReading(line)
		if !ok {
			out.Result = ResultIgnored
			return out
		}
		status, index, reading = space.StatusOn, ReadingSlot, &v
	}

	out.Status = string(status)
	out.Index = index
	if err == nil {
		err = i.target.ChangeStatusAt(index, status, reading)
	}
	if err != nil {
		out.Result = ResultFailed
		out.Error = err.Error()
		i.logger.Warn("output line not applied", "line", line, "error", err)
		return out
	}

	out.Result = ResultApplied
	return out
}

// resolvePin finds the accessory named by the first integer in line and
// returns its device's current collection index.
func (i *Interpreter) resolvePin(line string) (int, error) {
	digits := pinPattern.FindString(line)
	if digits == "" {
		return 0, ErrNoPinNumber
	}
	pin, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNoPinNumber, digits)
	}
	a, ok := i.table.Lookup(pin)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNoAccessory, pin)
	}
	index := i.target.IndexOf(a.AccessoryID)
	if index < 0 {
		return 0, fmt.Errorf("%w: %s", space.ErrDeviceNotFound, a.AccessoryID)
	}
	return index, nil
}

// parseReading accepts a line that is a finite number apart from
// surrounding whitespace. Blank lines are not readings.
func parseReading(line string) (float64, bool) {
	s := strings.TrimSpace(line)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
