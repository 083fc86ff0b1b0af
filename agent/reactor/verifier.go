package reactor

import (
	"context"
	"sync"
	"time"

	"github.com/findy-network/campus-agent/agent/campus"
	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/findy-network/campus-agent/agent/proofreq"
	"github.com/golang/glog"
)

// Verification is sent to subscribers when a presentation passes.
type Verification struct {
	ProofRecordID string             `json:"proofRecordId"`
	ConnectionID  string             `json:"connectionId"`
	Type          campus.RequestType `json:"type"`
	Attributes    map[string]string  `json:"attributes"`
	Predicates    map[string]bool    `json:"predicates"`
	VerifiedAt    time.Time          `json:"verifiedAt"`
}

// Notifier receives successful verifications.
type Notifier interface {
	Notify(v Verification)
}

// NotifierFunc adapts a func to Notifier.
type NotifierFunc func(v Verification)

func (f NotifierFunc) Notify(v Verification) { f(v) }

// Verifier is the verifier role's state: which request type was sent on
// which connection.
type Verifier struct {
	builder  proofreq.Builder
	policy   proofreq.Policy
	notifier Notifier
	now      func() time.Time

	lk        sync.Mutex
	requested map[string]campus.RequestType // by connection id
}

// NewVerifier creates the verifier state. n may be nil.
func NewVerifier(b proofreq.Builder, p proofreq.Policy, n Notifier) *Verifier {
	return &Verifier{
		builder:   b,
		policy:    p,
		notifier:  n,
		now:       time.Now,
		requested: make(map[string]campus.RequestType),
	}
}

// Role returns the verifier's transition tables.
func (v *Verifier) Role() Role[campus.RequestType] {
	return Role[campus.RequestType]{
		Name:               "verifier",
		AcceptsConnections: true,
		FollowUp:           v.requestProof,
		Proof: map[capability.ProofState]ProofStep{
			capability.ProofPresentationReceived: v.verify,
			capability.ProofAbandoned:            v.forget,
			capability.ProofDeclined:             v.forget,
		},
	}
}

// VerifierRole is a shorthand for NewVerifier(b, p, n).Role().
func VerifierRole(b proofreq.Builder, p proofreq.Policy, n Notifier) Role[campus.RequestType] {
	return NewVerifier(b, p, n).Role()
}

func (v *Verifier) requestProof(ctx context.Context, a capability.Agent, connectionID string, t campus.RequestType) error {
	req, err := v.builder.For(t)
	if err != nil {
		return err
	}
	// remember before sending, the presentation may come back before
	// RequestProof returns
	v.lk.Lock()
	v.requested[connectionID] = t
	v.lk.Unlock()

	rec, err := a.RequestProof(ctx, capability.ProofOptions{ConnectionID: connectionID, Request: req})
	if err != nil {
		v.take(connectionID)
		return err
	}
	glog.V(1).Infof("%s proof request %s sent", t, rec.ID)
	return nil
}

func (v *Verifier) take(connectionID string) (campus.RequestType, bool) {
	v.lk.Lock()
	defer v.lk.Unlock()

	t, ok := v.requested[connectionID]
	delete(v.requested, connectionID)
	return t, ok
}

func (v *Verifier) forget(_ context.Context, _ capability.Agent, rec capability.ProofRecord) error {
	v.take(rec.ConnectionID)
	return nil
}

func (v *Verifier) verify(ctx context.Context, a capability.Agent, rec capability.ProofRecord) error {
	res, err := a.AcceptPresentation(ctx, rec.ID)
	if err != nil {
		v.take(rec.ConnectionID)
		return err
	}

	t, ok := v.take(rec.ConnectionID)
	if !ok {
		t, ok = proofreq.Infer(res)
	}
	if !ok {
		glog.Warningf("verification failed: proof %s: unknown request type", rec.ID)
		return nil
	}

	verdict := v.policy.Evaluate(t, res)
	if !verdict.Passed {
		glog.Warningf("verification failed: proof %s %s: %s", rec.ID, t, verdict)
		return nil
	}
	glog.V(1).Infof("proof %s verified: %s", rec.ID, t)

	if v.notifier != nil {
		v.notifier.Notify(Verification{
			ProofRecordID: rec.ID,
			ConnectionID:  rec.ConnectionID,
			Type:          t,
			Attributes:    copyMap(res.RevealedAttributes),
			Predicates:    copyMap(res.Predicates),
			VerifiedAt:    v.now(),
		})
	}
	return nil
}

func copyMap[V any](m map[string]V) map[string]V {
	c := make(map[string]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
