package session

import (
	"context"
	"sync"

	"github.com/KaramelBytes/adreport-cli/internal/kpi"
	"github.com/KaramelBytes/adreport-cli/internal/logging"
	"github.com/KaramelBytes/adreport-cli/internal/report"
	"go.uber.org/zap"
)

// Session holds the current State for callers that generate asynchronously.
type Session struct {
	mu     sync.Mutex
	state  State
	logger *zap.Logger
}

// New returns an empty session.
func New(logger *zap.Logger) *Session {
	return &Session{logger: logging.OrNop(logger)}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load installs a new extraction and returns the resulting state.
func (s *Session) Load(workbook string, res kpi.Result, gateErr error) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Load(s.state, workbook, res, gateErr)
	return s.state
}

// Reset clears the session.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reset(s.state)
}

// Begin starts a generation for the current load.
func (s *Session) Begin() (Ticket, kpi.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, t, err := Begin(s.state)
	if err != nil {
		return Ticket{}, kpi.Record{}, err
	}
	s.state = next
	return t, next.Result.Record, nil
}

// Complete applies a result; false means it was stale and dropped.
func (s *Session) Complete(t Ticket, summary string, err error) bool {
	_, ok := s.complete(t, summary, err)
	return ok
}

func (s *Session) complete(t Ticket, summary string, err error) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := Complete(s.state, t, summary, err)
	if !ok {
		s.logger.Debug("dropping stale summary", zap.Uint64("ticket", t.Seq), zap.Uint64("current", s.state.Seq))
		return s.state, false
	}
	s.state = next
	return next, true
}

// Summarize runs one generation for the current load without holding the
// lock while the runtime works. It returns the state after completion and
// whether the result was applied.
func (s *Session) Summarize(ctx context.Context, sum *report.Summarizer, c report.Context) (State, bool, error) {
	t, rec, err := s.Begin()
	if err != nil {
		return s.Snapshot(), false, err
	}
	return s.Generate(ctx, t, rec, sum, c)
}

// Generate is the second half of Summarize for callers that take the ticket
// synchronously and generate on another goroutine.
func (s *Session) Generate(ctx context.Context, t Ticket, rec kpi.Record, sum *report.Summarizer, c report.Context) (State, bool, error) {
	var text string
	out, err := sum.Summarize(ctx, rec, c)
	if err == nil {
		text = out.Text
	}
	st, applied := s.complete(t, text, err)
	return st, applied, err
}
