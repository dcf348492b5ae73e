package main

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

type scriptOp int

const (
	opPlay scriptOp = iota
	opPause
	opStop
	opSeek
	opSelect
	opSkip
	opToggleAlt
	opToggleScroll
	opZoom
)

var scriptOps = map[string]scriptOp{
	"play":          opPlay,
	"pause":         opPause,
	"stop":          opStop,
	"seek":          opSeek,
	"skip":          opSkip,
	"toggle-alt":    opToggleAlt,
	"toggle-scroll": opToggleScroll,
	"zoom":          opZoom,
}

// scriptStep is a single timed command, "AT:NAME[=ARG]" where AT is
// seconds since playback start.
type scriptStep struct {
	at    time.Duration
	op    scriptOp
	elid  string  // opSelect
	value float64 // opSeek seconds, opSkip signed number of steps
	text  string
}

func (s scriptStep) String() string {
	return s.text
}

func parseStep(text string) (scriptStep, error) {
	step := scriptStep{text: text}

	at, command, ok := strings.Cut(strings.TrimSpace(text), ":")
	if !ok {
		return step, fmt.Errorf("script step %q: expected AT:COMMAND", text)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(at), 64)
	if err != nil || secs < 0 {
		return step, fmt.Errorf("script step %q: bad time %q", text, at)
	}
	step.at = time.Duration(secs * float64(time.Second))

	name, arg, hasArg := strings.Cut(strings.TrimSpace(command), "=")
	op, known := scriptOps[strings.ToLower(strings.TrimSpace(name))]
	if !known {
		return step, fmt.Errorf("script step %q: unknown command %q", text, name)
	}
	step.op = op
	arg = strings.TrimSpace(arg)

	switch op {
	case opSeek:
		if !hasArg || len(arg) == 0 {
			return step, fmt.Errorf("script step %q: seek needs position", text)
		}
		// "m12" selects element (measure) 12, plain number is seconds
		if elid, ok := strings.CutPrefix(arg, "m"); ok {
			if len(elid) == 0 {
				return step, fmt.Errorf("script step %q: empty element id", text)
			}
			step.op, step.elid = opSelect, elid
			break
		}
		if step.value, err = strconv.ParseFloat(arg, 64); err != nil || step.value < 0 {
			return step, fmt.Errorf("script step %q: bad seek position %q", text, arg)
		}
	case opSkip:
		step.value = 1
		if hasArg {
			n, err := strconv.Atoi(arg)
			if err != nil || n == 0 {
				return step, fmt.Errorf("script step %q: bad skip count %q", text, arg)
			}
			step.value = float64(n)
		}
	default:
		if hasArg {
			return step, fmt.Errorf("script step %q: %s takes no argument", text, name)
		}
	}
	return step, nil
}

// parseScript parses timed commands, each value may hold several comma
// separated steps. Result is ordered by time, steps with equal time keep
// command line order.
func parseScript(values []string) ([]scriptStep, error) {
	var steps []scriptStep
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if len(strings.TrimSpace(part)) == 0 {
				continue
			}
			step, err := parseStep(part)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}
	}
	slices.SortStableFunc(steps, func(a, b scriptStep) int {
		return cmp.Compare(a.at, b.at)
	})
	return steps, nil
}
