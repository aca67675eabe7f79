// internal/gate/gate.go
//
// Tracking-request gate.
//
// Context
// -------
// Runs once per inbound tracking event, before anything is recorded:
//
//  1. No site identifier       → continue (the gate does not apply).
//  2. Identifier won't decode  → continue, or terminate when
//     Policy.RejectUndecodable is set.
//  3. Checker fails            → continue, or terminate when
//     Policy.FailClosed is set.  An outage of the store must not silently
//     stop all collection unless the operator asks for that.
//  4. Site disabled            → terminate.
//  5. Otherwise                → continue.
//
// Check never returns an error.  Failures are logged and counted, and the
// caller only ever sees a Verdict.
package gate

import (
	"context"

	"go.uber.org/zap"

	"github.com/yanizio/trackgate/internal/metrics"
)

// Verdict is the gate's decision for one request.
type Verdict int

const (
	// Continue lets the request through unchanged.
	Continue Verdict = iota
	// Terminate ends handling at once: no event, no body.
	Terminate
)

func (v Verdict) String() string {
	if v == Terminate {
		return "terminate"
	}
	return "continue"
}

// Checker answers the disable question.  *disable.Cache and *disable.Store
// both satisfy it.
type Checker interface {
	IsDisabled(ctx context.Context, siteID int64) (bool, error)
}

// Policy selects fail-open or fail-closed for the two ambiguous cases.
// The zero value fails open on both.
type Policy struct {
	RejectUndecodable bool
	FailClosed        bool
}

// Gate is safe for concurrent use.
type Gate struct {
	checker Checker
	decoder Decoder
	policy  Policy
}

// New builds a Gate.  A nil decoder means IntDecoder.
func New(checker Checker, decoder Decoder, policy Policy) *Gate {
	if decoder == nil {
		decoder = IntDecoder{}
	}
	return &Gate{checker: checker, decoder: decoder, policy: policy}
}

// Check decides whether req may be processed.
func (g *Gate) Check(ctx context.Context, req Request) Verdict {
	if !req.HasSite() {
		return g.decide("no_site", Continue)
	}

	siteID, err := g.decoder.Decode(req.SiteToken)
	if err != nil {
		zap.L().Warn("tracking gate: undecodable site id",
			zap.String("token", req.SiteToken),
			zap.Bool("reject", g.policy.RejectUndecodable),
			zap.Error(err))
		if g.policy.RejectUndecodable {
			return g.decide("undecodable_reject", Terminate)
		}
		return g.decide("undecodable_pass", Continue)
	}

	disabled, err := g.checker.IsDisabled(ctx, siteID)
	if err != nil {
		zap.L().Warn("tracking gate: disable check failed",
			zap.Int64("site_id", siteID),
			zap.Bool("fail_closed", g.policy.FailClosed),
			zap.Error(err))
		if g.policy.FailClosed {
			return g.decide("error_reject", Terminate)
		}
		return g.decide("error_pass", Continue)
	}

	if disabled {
		zap.L().Debug("tracking gate: site disabled, request dropped", zap.Int64("site_id", siteID))
		return g.decide("disabled", Terminate)
	}
	return g.decide("enabled", Continue)
}

func (g *Gate) decide(outcome string, v Verdict) Verdict {
	metrics.GateDecisionsTotal.WithLabelValues(outcome).Inc()
	return v
}
