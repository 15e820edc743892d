// Package backoff decides, after a failed lock operation attempt, whether
// another attempt is warranted and how long to wait before making it.
//
// Strategies are composed as an ordered Chain. Each link either makes a
// decision or delegates to the links after it:
//
//	chain := backoff.Chain{
//	    backoff.Timeout{},
//	    backoff.NewHTTPStatus(409, 500, 503),
//	    backoff.Constant(time.Second),
//	}
//
// All per-call state (retry count, deadline) travels in the Attempt value, so
// a chain built from stateless links can be shared between calls. Links
// backed by a stateful delay policy (Exponential) must be built per call.
package backoff

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
)

// MinDelay is the smallest wait a Delay link will return.
const MinDelay = 10 * time.Millisecond

// DefaultRetryCodes are the statuses an acquire retries on.
var DefaultRetryCodes = []int{http.StatusConflict, http.StatusInternalServerError, http.StatusServiceUnavailable}

// Action is what a strategy wants done after an attempt.
type Action int

const (
	// Delegate means the link has no opinion; the next link decides.
	Delegate Action = iota
	// Retry means wait Decision.Delay and try again.
	Retry
	// StopSuccess means the attempt succeeded and nothing more is needed.
	StopSuccess
	// StopFailure means give up.
	StopFailure
)

func (a Action) String() string {
	switch a {
	case Delegate:
		return "delegate"
	case Retry:
		return "retry"
	case StopSuccess:
		return "stop-success"
	case StopFailure:
		return "stop-failure"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Decision is the outcome of consulting a strategy.
type Decision struct {
	Action Action
	Delay  time.Duration
}

func (d Decision) String() string {
	if d.Action == Retry {
		return fmt.Sprintf("retry-after(%s)", d.Delay)
	}
	return d.Action.String()
}

var (
	noOpinion = Decision{Action: Delegate}
	succeed   = Decision{Action: StopSuccess}
	fail      = Decision{Action: StopFailure}
)

// RetryAfter returns a decision to retry after d.
func RetryAfter(d time.Duration) Decision {
	return Decision{Action: Retry, Delay: d}
}

// Attempt describes the attempt that just finished.
type Attempt struct {
	// Retries is the number of retries already made (0 after the first attempt).
	Retries int
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int
	// Err is the error the attempt produced, if any.
	Err error
	// Deadline is when the caller's budget runs out.
	Deadline time.Time
	// Now is the time the decision is being made.
	Now time.Time
}

// Strategy decides what happens after an attempt.
type Strategy interface {
	Decide(a Attempt) Decision
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(a Attempt) Decision

func (f StrategyFunc) Decide(a Attempt) Decision { return f(a) }

// Chain evaluates its links in order and returns the first decision that is
// not Delegate. A chain where every link delegates stops with failure.
type Chain []Strategy

func (c Chain) Decide(a Attempt) Decision {
	for _, s := range c {
		if d := s.Decide(a); d.Action != Delegate {
			return d
		}
	}
	return fail
}

// Timeout stops once the attempt's deadline has passed, overriding every link
// after it. A zero deadline stops immediately.
type Timeout struct{}

func (Timeout) Decide(a Attempt) Decision {
	if a.Deadline.IsZero() || a.Now.After(a.Deadline) {
		return fail
	}
	return noOpinion
}

// HTTPStatus marks a fixed set of status codes as retryable and leaves the
// delay to later links. Successful responses stop with success; transport
// errors and any other status are terminal.
type HTTPStatus struct {
	Codes []int
}

// NewHTTPStatus returns an HTTPStatus link for codes, or DefaultRetryCodes when none are given.
func NewHTTPStatus(codes ...int) HTTPStatus {
	if len(codes) == 0 {
		codes = DefaultRetryCodes
	}
	return HTTPStatus{Codes: slices.Clone(codes)}
}

func (s HTTPStatus) Decide(a Attempt) Decision {
	switch {
	case a.StatusCode == 0:
		return fail
	case a.StatusCode >= 200 && a.StatusCode < 300:
		return succeed
	case slices.Contains(s.Codes, a.StatusCode):
		return noOpinion
	default:
		return fail
	}
}

// Delay answers every attempt with a retry after the policy's next interval.
// A policy returning cbackoff.Stop ends the retries.
type Delay struct {
	Policy cbackoff.BackOff
}

// Constant retries after d every time.
func Constant(d time.Duration) *Delay {
	return &Delay{Policy: cbackoff.NewConstantBackOff(d)}
}

// Exponential retries with exponentially growing, jittered delays capped at maxInterval.
// The returned link is stateful; build one per operation.
func Exponential(initial, maxInterval time.Duration) *Delay {
	b := cbackoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return &Delay{Policy: b}
}

func (d *Delay) Decide(Attempt) Decision {
	next := d.Policy.NextBackOff()
	if next == cbackoff.Stop {
		return fail
	}
	if next < MinDelay {
		next = MinDelay
	}
	return RetryAfter(next)
}

// DefaultChain is the acquire policy: stop at the deadline, retry on 409/500/503, wait delay between attempts.
func DefaultChain(delay time.Duration) Chain {
	return Chain{
		Timeout{},
		NewHTTPStatus(DefaultRetryCodes...),
		Constant(delay),
	}
}

// Wait blocks for d or until ctx is done, whichever comes first.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
