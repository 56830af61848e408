// Package session tracks the workbook currently loaded and the summary being
// generated for it. State values are immutable; every transition returns a
// new value, and a completion that belongs to an older load is dropped.
package session

import (
	"errors"

	"github.com/KaramelBytes/adreport-cli/internal/kpi"
)

var (
	// ErrNoWorkbook means nothing has been loaded yet.
	ErrNoWorkbook = errors.New("session: no workbook loaded")
	// ErrBusy means a generation for the current load is still running.
	ErrBusy = errors.New("session: summary generation already running")
)

// State is one snapshot of the session.
type State struct {
	// Seq increases on every Load and Reset.
	Seq        uint64
	Workbook   string
	Result     kpi.Result
	GateErr    error
	Generating bool
	Summary    string
	Err        error
}

// Ready reports whether a summary can be requested.
func (s State) Ready() bool {
	return s.Seq > 0 && s.Workbook != "" && s.GateErr == nil && !s.Generating
}

// Ticket identifies the load a generation was started for.
type Ticket struct {
	Seq uint64
}

// Load replaces everything with a fresh extraction. Any summary or error
// from the previous workbook is cleared in the same step.
func Load(s State, workbook string, res kpi.Result, gateErr error) State {
	return State{
		Seq:      s.Seq + 1,
		Workbook: workbook,
		Result:   res,
		GateErr:  gateErr,
	}
}

// Reset clears the session and invalidates outstanding tickets.
func Reset(s State) State {
	return State{Seq: s.Seq + 1}
}

// Begin marks a generation as running. A rejected extraction returns its
// gate error.
func Begin(s State) (State, Ticket, error) {
	switch {
	case s.Workbook == "":
		return s, Ticket{}, ErrNoWorkbook
	case s.GateErr != nil:
		return s, Ticket{}, s.GateErr
	case s.Generating:
		return s, Ticket{}, ErrBusy
	}
	s.Generating = true
	s.Summary = ""
	s.Err = nil
	return s, Ticket{Seq: s.Seq}, nil
}

// Complete applies a finished generation. It reports false, leaving s as it
// was, when the ticket predates the current load.
func Complete(s State, t Ticket, summary string, err error) (State, bool) {
	if t.Seq != s.Seq || !s.Generating {
		return s, false
	}
	s.Generating = false
	s.Summary = summary
	s.Err = err
	return s, true
}
