package setup

import (
	"fmt"
	"io"
)

// Status of a single setup sub-step.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Outcome records one sub-step's result. Warn outcomes carry a manual
// remediation hint for the operator.
type Outcome struct {
	Step   string
	Status Status
	Detail string
	Hint   string
}

// Report accumulates sub-step outcomes for the whole setup run. Best-effort
// steps report warnings here instead of failing the run.
type Report struct {
	Outcomes []Outcome
}

func (r *Report) ok(step, detail string) {
	r.Outcomes = append(r.Outcomes, Outcome{Step: step, Status: StatusOK, Detail: detail})
}

func (r *Report) warn(step, detail, hint string) {
	r.Outcomes = append(r.Outcomes, Outcome{Step: step, Status: StatusWarn, Detail: detail, Hint: hint})
}

// Warnings counts non-fatal problems recorded during the run.
func (r *Report) Warnings() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == StatusWarn {
			n++
		}
	}
	return n
}

// Render writes a human-readable summary.
func (r *Report) Render(w io.Writer) {
	for _, o := range r.Outcomes {
		symbol := "✓"
		switch o.Status {
		case StatusWarn:
			symbol = "!"
		case StatusFail:
			symbol = "✗"
		}
		fmt.Fprintf(w, "  %s %s: %s\n", symbol, o.Step, o.Detail)
		if o.Hint != "" {
			fmt.Fprintf(w, "      hint: %s\n", o.Hint)
		}
	}
}
