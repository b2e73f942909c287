// Package count counts the assignments of the outermost quantifier
// block of a QBF under which the formula is true (if it is true) or
// false (if it is false), by repeated calls to an incremental oracle.
package count

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/operator-framework/outer-count/pkg/metrics"
	"github.com/operator-framework/outer-count/pkg/oracle"
	"github.com/operator-framework/outer-count/pkg/qbf"
)

const instrumentationName = "github.com/operator-framework/outer-count/pkg/count"

// ErrSessionUsed is returned by Run on a Session that already ran.
var ErrSessionUsed = errors.New("counting session already used")

// Result is the outcome of a counting run.
type Result struct {
	SessionID string
	// Truth is the truth value of the formula. Satisfying
	// assignments were counted if it is true, falsifying ones
	// otherwise.
	Truth bool
	// Empty is set when the formula has no clauses or an empty
	// clause. Nothing was counted and the oracle was not consulted.
	Empty bool
	// Overflow is set when the count exceeds the uint64 range; Count
	// is Sentinel in that case.
	Overflow   bool
	Count      uint64
	Witnesses  int
	SolveCalls int
	State      State
	Duration   time.Duration
}

// Session is a single counting run. It owns its oracle, which is
// created by Run and released by Close.
type Session struct {
	id        string
	formula   *qbf.Formula
	selection *qbf.Selection

	newOracle func() (oracle.Oracle, error)
	backend   string
	tracer    Tracer
	logger    logrus.FieldLogger
	spans     trace.Tracer

	oracle    oracle.Oracle
	innermost oracle.Scope
	guard     int
	chain     *exclusionChain
	countable []int
	framed    bool

	state      State
	tally      Tally
	witnesses  int
	dontCares  int
	solveCalls int
	witness    assignment
}

// NewSession validates f and prepares a run over it.
func NewSession(f *qbf.Formula, options ...Option) (*Session, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	sel, err := qbf.Select(f)
	if err != nil {
		return nil, err
	}

	s := Session{
		id:        uuid.New().String(),
		formula:   f,
		selection: sel,
		tally:     NewTally(),
	}
	for _, option := range append(options, defaults...) {
		if err := option(&s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.WithField("session", s.id)
	return &s, nil
}

// Count runs a Session over f and closes it.
func Count(ctx context.Context, f *qbf.Formula, options ...Option) (Result, error) {
	s, err := NewSession(f, options...)
	if err != nil {
		return Result{}, err
	}
	defer s.Close()
	return s.Run(ctx)
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Selection() *qbf.Selection {
	return s.selection
}

// Run counts the outer-block witnesses. Overflow is not an error: the
// Result carries the flag and the Sentinel count.
func (s *Session) Run(ctx context.Context) (result Result, err error) {
	if s.state != Init {
		return Result{}, ErrSessionUsed
	}
	start := time.Now()
	ctx, span := s.spans.Start(ctx, "count.Run", trace.WithAttributes(
		attribute.String("session", s.id),
		attribute.Int("vars", s.formula.NumVars),
		attribute.Int("clauses", s.formula.NumClauses),
		attribute.Int("blocks", len(s.selection.Blocks)),
	))
	defer func() {
		result.Duration = time.Since(start)
		outcome := outcomeOf(result, err)
		metrics.EmitRun(outcome, result.Duration)
		span.SetAttributes(attribute.String("outcome", outcome), attribute.Int("witnesses", s.witnesses))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	result.SessionID = s.id
	if s.formula.IsEmpty() {
		s.logger.Info("formula is empty or contains empty clause")
		s.state = Done
		result.Empty = true
		result.State = s.state
		return result, nil
	}

	if err := s.load(); err != nil {
		return result, err
	}

	s.state = DetermineTruth
	s.oracle.Assume(s.guard)
	r, err := s.solve(ctx)
	if err != nil {
		return result, err
	}
	result.Truth = r == oracle.Satisfiable
	if result.Truth {
		s.state = EnumSat
	} else {
		s.state = EnumUnsat
	}
	s.logger.WithField("truth", result.Truth).Debug("truth value determined")
	if outer := s.effectiveOuter(); result.Truth != (outer == qbf.Exists) {
		s.logger.WithFields(logrus.Fields{
			"truth": result.Truth,
			"outer": outer,
		}).Warn("truth value disagrees with the outermost quantifier, every outer assignment is a witness")
	}

	for {
		k := s.readWitness()
		s.witnesses++
		metrics.EmitWitness(k)
		if !s.tally.Add(k) {
			s.logger.WithFields(logrus.Fields{
				"count":      s.tally.Count(),
				"dont-cares": k,
			}).Info("count exceeds representable range")
			s.state = Overflow
			break
		}
		s.tracer.Trace(s)

		if err := ctx.Err(); err != nil {
			return s.fill(result), fmt.Errorf("counting interrupted after %d witnesses: %w", s.witnesses, err)
		}

		if result.Truth {
			s.block()
			s.oracle.Assume(s.guard)
		} else if err := s.exclude(); err != nil {
			return s.fill(result), err
		}

		r, err = s.solve(ctx)
		if err != nil {
			return s.fill(result), err
		}
		if result.Truth != (r == oracle.Satisfiable) {
			s.state = Done
			break
		}
	}
	return s.fill(result), nil
}

func (s *Session) fill(result Result) Result {
	result.State = s.state
	result.Witnesses = s.witnesses
	result.SolveCalls = s.solveCalls
	result.Count = s.tally.Count()
	if s.state == Overflow {
		result.Overflow = true
		result.Count = Sentinel
	}
	return result
}

// Close releases the oracle, popping the open checkpoint if any. It
// is safe to call more than once.
func (s *Session) Close() error {
	if s.oracle == nil {
		return nil
	}
	var err error
	if s.framed {
		err = s.oracle.Pop()
		s.framed = false
	}
	s.oracle = nil
	return err
}

// load declares the prefix, the guard and the guarded matrix.
func (s *Session) load() error {
	o, err := s.newOracle()
	if err != nil {
		return err
	}
	s.oracle = o

	scopes := make([]oracle.Scope, len(s.selection.Blocks))
	for i, b := range s.selection.Blocks {
		scopes[i] = o.NewScope(b.Quantifier)
		for _, v := range b.Vars {
			o.AddVarToScope(v, scopes[i])
		}
	}
	if i := s.selection.InnermostExists(); i > 0 {
		s.innermost = scopes[i-1]
	} else {
		s.innermost = o.NewScope(qbf.Exists)
	}

	s.guard = s.formula.NumVars + 1
	o.AddVarToScope(s.guard, s.innermost)
	s.chain = newExclusionChain(s.guard + 1)

	for _, c := range s.formula.Clauses {
		o.Add(-s.guard)
		for _, lit := range c {
			o.Add(lit)
		}
		o.Add(0)
	}

	for _, v := range s.selection.Countable {
		if o.IsDeclared(v) {
			s.countable = append(s.countable, v)
		}
	}
	s.logger.WithFields(logrus.Fields{
		"countable": len(s.countable),
		"free":      len(s.selection.Free),
		"guard":     s.guard,
	}).Debug("formula loaded")
	return nil
}

func (s *Session) solve(ctx context.Context) (oracle.Result, error) {
	ctx, span := s.spans.Start(ctx, "oracle.Solve")
	defer span.End()

	s.solveCalls++
	r, err := s.oracle.Solve(ctx)
	metrics.EmitSolveCall(s.backend, r.String())
	span.SetAttributes(attribute.String("result", r.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return r, err
	}
	return r, nil
}

// readWitness stores the defined values of the countable variables
// and returns the number of don't-cares.
func (s *Session) readWitness() int {
	s.witness = s.witness[:0]
	k := 0
	for _, v := range s.countable {
		val := s.oracle.Value(v)
		if val == oracle.Undefined {
			k++
			continue
		}
		s.witness = append(s.witness, literal(v, val))
	}
	s.dontCares = k
	return k
}

// block adds the permanent clause excluding the current model.
func (s *Session) block() {
	for _, lit := range s.witness.blockingClause() {
		s.oracle.Add(lit)
	}
	s.oracle.Add(0)
}

// exclude retires the current countermodel. The selector clauses of
// a fresh excluder are permanent; the chain clause linking all
// excluders to the guard lives in the only open checkpoint and is
// replaced on the next iteration.
func (s *Session) exclude() error {
	if s.framed {
		if err := s.oracle.Pop(); err != nil {
			return err
		}
		s.framed = false
	}

	e := s.chain.Extend()
	s.oracle.AddVarToScope(e, s.innermost)
	for _, c := range s.witness.selectorClauses(e) {
		for _, lit := range c {
			s.oracle.Add(lit)
		}
		s.oracle.Add(0)
	}

	s.oracle.Push()
	s.framed = true
	for _, lit := range s.chain.Clause(s.guard) {
		s.oracle.Add(lit)
	}
	s.oracle.Add(0)
	return nil
}

// effectiveOuter is the polarity of the outermost scope seen by the
// oracle: free variables make it existential.
func (s *Session) effectiveOuter() qbf.Quantifier {
	if len(s.selection.Free) > 0 || len(s.selection.Blocks) == 0 {
		return qbf.Exists
	}
	return s.selection.Outer()
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Count() uint64 {
	return s.tally.Count()
}

func (s *Session) Witnesses() int {
	return s.witnesses
}

func (s *Session) DontCares() int {
	return s.dontCares
}

func outcomeOf(r Result, err error) string {
	switch {
	case err != nil:
		return metrics.OutcomeFailed
	case r.Empty:
		return metrics.OutcomeEmpty
	case r.Overflow:
		return metrics.Overflow
	case r.Truth:
		return metrics.OutcomeTrue
	}
	return metrics.OutcomeFalse
}

type Option func(s *Session) error

// WithOracleConfig selects and tunes the oracle backend.
func WithOracleConfig(cfg oracle.Config) Option {
	return func(s *Session) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		s.backend = cfg.Backend
		s.newOracle = func() (oracle.Oracle, error) {
			return oracle.New(oracle.WithConfig(cfg))
		}
		return nil
	}
}

// WithOracle supplies the oracle constructor directly.
func WithOracle(newOracle func() (oracle.Oracle, error)) Option {
	return func(s *Session) error {
		s.newOracle = newOracle
		if s.backend == "" {
			s.backend = "custom"
		}
		return nil
	}
}

func WithTracer(t Tracer) Option {
	return func(s *Session) error {
		s.tracer = t
		return nil
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) error {
		s.logger = l
		return nil
	}
}

var defaults = []Option{
	func(s *Session) error {
		if s.newOracle == nil {
			return WithOracleConfig(oracle.DefaultConfig())(s)
		}
		return nil
	},
	func(s *Session) error {
		if s.tracer == nil {
			s.tracer = DefaultTracer{}
		}
		return nil
	},
	func(s *Session) error {
		if s.logger == nil {
			s.logger = logrus.StandardLogger()
		}
		return nil
	},
	func(s *Session) error {
		if s.spans == nil {
			s.spans = otel.Tracer(instrumentationName)
		}
		return nil
	},
}
