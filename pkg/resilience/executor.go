package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
)

// Config holds the executor settings that are fixed at construction.
type Config struct {
	// BaseURLs are used by operations that carry none of their own.
	BaseURLs []string
	// Headers are sent on every request (auth, accept).
	Headers map[string]string
	// MaxRetries is the number of retries per candidate after the first attempt.
	MaxRetries int
	// BaseDelay is the wait after the first failed attempt; it doubles per retry.
	BaseDelay time.Duration
	// MaxDelay caps the exponential part of the backoff.
	MaxDelay time.Duration
	// MaxJitter bounds the uniform jitter added to every backoff.
	MaxJitter time.Duration
	// PreDelayMin and PreDelayMax bound the random wait before every attempt.
	PreDelayMin time.Duration
	PreDelayMax time.Duration
	// AttemptTimeout bounds a single network attempt.
	AttemptTimeout time.Duration
	// OperationTimeout bounds a whole Execute call; zero means no bound.
	OperationTimeout time.Duration
	// UserAgents is the pool rotated across attempts.
	UserAgents []string
}

// DefaultConfig returns the executor defaults for the market-data API.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		BaseDelay:      2 * time.Second,
		MaxDelay:       30 * time.Second,
		MaxJitter:      time.Second,
		PreDelayMin:    500 * time.Millisecond,
		PreDelayMax:    1500 * time.Millisecond,
		AttemptTimeout: 30 * time.Second,
		UserAgents:     DefaultUserAgents,
	}
}

// Operation describes one logical API call.
type Operation struct {
	// Name labels logs, metrics and spans.
	Name string
	// BaseURLs override the executor's base URLs when set.
	BaseURLs []string
	// Templates are path templates with {name} placeholders.
	Templates []string
	// Substitutions are the alternative placeholder spellings, most likely first.
	Substitutions []Substitution
	Query         map[string]string
	Headers       map[string]string
	// Classifier overrides the executor's classifier for this operation.
	Classifier Classifier
}

// Attempt records one network attempt. It is diagnostic only.
type Attempt struct {
	Candidate  int
	URL        string
	Number     int
	UserAgent  string
	Waited     time.Duration
	Duration   time.Duration
	StatusCode int
	Outcome    OutcomeKind
	Err        error
}

// Result is a successful call.
type Result struct {
	Operation  string
	Candidate  Candidate
	StatusCode int
	Body       json.RawMessage
	Attempts   []Attempt
}

// Empty reports whether the successful response had no body.
func (r *Result) Empty() bool {
	return len(strings.TrimSpace(string(r.Body))) == 0
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (r *Result) Decode(v any) error {
	if r.Empty() {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return apperrors.NewDecodingError(fmt.Sprintf("failed to decode %s response", r.Operation)).WithCause(err)
	}
	return nil
}

// CandidateReport summarizes how one candidate failed.
type CandidateReport struct {
	Candidate Candidate
	Attempts  int
	LastErr   error
}

// ExhaustedError is returned when every candidate failed. It unwraps to an
// *errors.AppError of type exhausted.
type ExhaustedError struct {
	Operation string
	Reports   []CandidateReport
	Attempts  []Attempt
	cause     *apperrors.AppError
}

func newExhaustedError(op string, reports []CandidateReport, attempts []Attempt) *ExhaustedError {
	cause := apperrors.NewExhaustedError(op).WithDetail("candidates", fmt.Sprint(len(reports)))
	if n := len(reports); n > 0 {
		cause.WithCause(reports[n-1].LastErr)
	}
	return &ExhaustedError{Operation: op, Reports: reports, Attempts: attempts, cause: cause}
}

func (e *ExhaustedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed on all %d candidate(s)", e.Operation, len(e.Reports))
	for _, r := range e.Reports {
		fmt.Fprintf(&b, "; [%d] %s: %d attempt(s), last error: %v", r.Candidate.Index, r.Candidate.URL(), r.Attempts, r.LastErr)
	}
	return b.String()
}

func (e *ExhaustedError) Unwrap() error {
	if e.cause == nil {
		return nil
	}
	return e.cause
}

// IsExhausted reports whether err is an aggregate failure of every candidate.
func IsExhausted(err error) bool {
	var exh *ExhaustedError
	return errors.As(err, &exh)
}

// Recorder receives executor measurements. *metrics.Metrics implements it.
type Recorder interface {
	RecordAPIAttempt(operation, outcome string, duration time.Duration)
	RecordAPIBackoff(operation string, delay time.Duration)
	RecordAPIOperation(operation, status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAPIAttempt(string, string, time.Duration) {}
func (nopRecorder) RecordAPIBackoff(string, time.Duration)         {}
func (nopRecorder) RecordAPIOperation(string, string)              {}

// Executor runs operations against their candidate lists. It holds no
// per-call state and is safe for concurrent use.
type Executor struct {
	cfg        Config
	transport  Transport
	sleeper    Sleeper
	rnd        RandomSource
	logger     *logging.Logger
	recorder   Recorder
	tracer     trace.Tracer
	classifier Classifier
}

// Option customizes an Executor.
type Option func(*Executor)

// WithTransport sets the HTTP transport.
func WithTransport(t Transport) Option { return func(e *Executor) { e.transport = t } }

// WithSleeper sets how waits are performed.
func WithSleeper(s Sleeper) Option { return func(e *Executor) { e.sleeper = s } }

// WithRandom sets the randomness source.
func WithRandom(r RandomSource) Option { return func(e *Executor) { e.rnd = r } }

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option { return func(e *Executor) { e.logger = l } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option { return func(e *Executor) { e.recorder = r } }

// WithTracer sets the tracer used for operation and attempt spans.
func WithTracer(t trace.Tracer) Option { return func(e *Executor) { e.tracer = t } }

// WithClassifier replaces DefaultClassifier.
func WithClassifier(c Classifier) Option { return func(e *Executor) { e.classifier = c } }

// NewExecutor creates an executor. Negative settings are clamped to zero; a
// missing attempt timeout or user-agent pool falls back to the defaults.
func NewExecutor(cfg Config, opts ...Option) *Executor {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay < 0 {
		cfg.BaseDelay = 0
	}
	if cfg.MaxDelay < 0 {
		cfg.MaxDelay = 0
	}
	if cfg.MaxJitter < 0 {
		cfg.MaxJitter = 0
	}
	if cfg.PreDelayMin < 0 {
		cfg.PreDelayMin = 0
	}
	if cfg.PreDelayMax < cfg.PreDelayMin {
		cfg.PreDelayMax = cfg.PreDelayMin
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultConfig().AttemptTimeout
	}
	if cfg.OperationTimeout < 0 {
		cfg.OperationTimeout = 0
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = DefaultUserAgents
	}

	e := &Executor{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}

	if e.transport == nil {
		e.transport = NewRestyTransport(nil)
	}
	if e.sleeper == nil {
		e.sleeper = TimerSleeper{}
	}
	if e.rnd == nil {
		e.rnd = DefaultRandom()
	}
	if e.logger == nil {
		e.logger = logging.NewNopLogger()
	}
	if e.recorder == nil {
		e.recorder = nopRecorder{}
	}
	if e.tracer == nil {
		e.tracer = noop.NewTracerProvider().Tracer("resilience")
	}
	if e.classifier == nil {
		e.classifier = DefaultClassifier
	}
	return e
}

// Config returns the executor's effective configuration.
func (e *Executor) Config() Config {
	return e.cfg
}

// Execute runs op: each candidate in order, each up to MaxRetries+1 times,
// returning on the first success. When every candidate fails the error is an
// *ExhaustedError. A malformed op fails with a validation error before any
// network attempt. Cancellation of ctx stops the call.
func (e *Executor) Execute(ctx context.Context, op Operation) (*Result, error) {
	if op.Name == "" {
		op.Name = "request"
	}
	candidates, err := e.Candidates(op)
	if err != nil {
		e.recorder.RecordAPIOperation(op.Name, "invalid")
		return nil, err
	}

	if e.cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.OperationTimeout)
		defer cancel()
	}

	ctx, span := e.tracer.Start(ctx, "resilience.Execute", trace.WithAttributes(
		attribute.String("operation", op.Name),
		attribute.Int("candidates", len(candidates)),
		attribute.Int("max_retries", e.cfg.MaxRetries),
	))
	defer span.End()

	classify := op.Classifier
	if classify == nil {
		classify = e.classifier
	}

	var (
		history []Attempt
		reports = make([]CandidateReport, 0, len(candidates))
		prevUA  = -1
	)

	for _, cand := range candidates {
		report := CandidateReport{Candidate: cand}
		var backoff time.Duration

	attempts:
		for n := 1; n <= e.cfg.MaxRetries+1; n++ {
			pre := uniformDelay(e.cfg.PreDelayMin, e.cfg.PreDelayMax, e.rnd)
			if err := e.wait(ctx, pre); err != nil {
				return nil, e.abort(ctx, span, op.Name, err)
			}

			prevUA = nextUserAgent(len(e.cfg.UserAgents), prevUA, e.rnd)
			att, outcome, resp := e.attempt(ctx, op, cand, n, e.cfg.UserAgents[prevUA], classify)
			att.Waited = backoff + pre
			history = append(history, att)
			report.Attempts = n
			report.LastErr = outcome.Err

			e.logger.LogAttempt(ctx, logging.AttemptEvent{
				Operation: op.Name,
				Endpoint:  cand.URL(),
				Candidate: cand.Index,
				Attempt:   n,
				Waited:    att.Waited,
				Outcome:   outcome.Kind.String(),
				Status:    att.StatusCode,
				Duration:  att.Duration,
				Err:       outcome.Err,
			})
			e.recorder.RecordAPIAttempt(op.Name, outcome.Kind.String(), att.Duration)

			switch outcome.Kind {
			case OutcomeSuccess:
				var body json.RawMessage
				if resp != nil {
					body = append(json.RawMessage(nil), resp.Body...)
				}
				e.recorder.RecordAPIOperation(op.Name, "success")
				span.SetAttributes(
					attribute.Int("attempts", len(history)),
					attribute.String("candidate.url", cand.URL()),
				)
				return &Result{
					Operation:  op.Name,
					Candidate:  cand,
					StatusCode: att.StatusCode,
					Body:       body,
					Attempts:   history,
				}, nil

			case OutcomeAbort:
				return nil, e.abort(ctx, span, op.Name, outcome.Err)

			case OutcomeCandidateFailure:
				break attempts

			case OutcomeRetryable:
				if n > e.cfg.MaxRetries {
					break attempts
				}
				backoff = backoffDelay(n, e.cfg.BaseDelay, e.cfg.MaxDelay, e.cfg.MaxJitter, e.rnd)
				e.recorder.RecordAPIBackoff(op.Name, backoff)
				if err := e.wait(ctx, backoff); err != nil {
					return nil, e.abort(ctx, span, op.Name, err)
				}
			}
		}

		reports = append(reports, report)
	}

	exhausted := newExhaustedError(op.Name, reports, history)
	e.recorder.RecordAPIOperation(op.Name, "exhausted")
	span.SetAttributes(attribute.Int("attempts", len(history)))
	span.SetStatus(codes.Error, "all candidates failed")
	e.logger.WithContext(ctx).WithField("operation", op.Name).
		WithField("candidates", len(candidates)).
		WithField("attempts", len(history)).
		Warn("All candidates exhausted")
	return nil, exhausted
}

func (e *Executor) attempt(ctx context.Context, op Operation, cand Candidate, n int, userAgent string, classify Classifier) (Attempt, Outcome, *Response) {
	att := Attempt{
		Candidate: cand.Index,
		URL:       cand.URL(),
		Number:    n,
		UserAgent: userAgent,
	}

	ctx, span := e.tracer.Start(ctx, "resilience.attempt", trace.WithAttributes(
		attribute.String("operation", op.Name),
		attribute.String("http.url", cand.URL()),
		attribute.Int("candidate", cand.Index),
		attribute.Int("attempt", n),
	))
	defer span.End()

	headers := make(map[string]string, len(e.cfg.Headers)+len(op.Headers)+1)
	for k, v := range e.cfg.Headers {
		headers[k] = v
	}
	for k, v := range op.Headers {
		headers[k] = v
	}
	headers["User-Agent"] = userAgent

	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.AttemptTimeout)
	defer cancel()

	start := time.Now()
	resp, err := e.transport.Do(attemptCtx, &Request{URL: cand.URL(), Query: op.Query, Headers: headers})
	att.Duration = time.Since(start)
	if resp != nil {
		att.StatusCode = resp.StatusCode
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}

	var outcome Outcome
	if err != nil && ctx.Err() != nil {
		// The caller's context ended, not just this attempt's timeout.
		outcome = Outcome{Kind: OutcomeAbort, Err: ctx.Err()}
	} else {
		if err != nil {
			resp = nil
		}
		outcome = classify(resp, err)
	}
	att.Outcome = outcome.Kind
	att.Err = outcome.Err

	span.SetAttributes(attribute.String("outcome", outcome.Kind.String()))
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	}
	return att, outcome, resp
}

func (e *Executor) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return e.sleeper.Sleep(ctx, d)
}

func (e *Executor) abort(ctx context.Context, span trace.Span, op string, cause error) error {
	if cause == nil {
		cause = ctx.Err()
	}
	if cause == nil {
		cause = errors.New("aborted by classifier")
	}
	e.recorder.RecordAPIOperation(op, "aborted")
	span.SetStatus(codes.Error, "aborted")

	var err error
	if errors.Is(cause, context.DeadlineExceeded) {
		err = apperrors.NewTimeoutError(op).WithCause(cause)
	} else {
		err = fmt.Errorf("%s aborted: %w", op, cause)
	}
	span.RecordError(err)
	return err
}
