package loopback

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/findy-network/campus-agent/agent/utils"
	"github.com/golang/glog"
)

type proof struct {
	rec          capability.ProofRecord
	request      capability.ProofRequest
	peer         *Agent
	peerID       string
	presentation *presentation
}

// presentation references the credentials by thread id, which is what the
// issuer recorded at issuance.
type presentation struct {
	Attributes map[string]presentedAttribute
	Predicates map[string]string // referent -> thread id
}

type presentedAttribute struct {
	Value    string
	ThreadID string
}

func (a *Agent) proofIn(id string, s capability.ProofState) (*proof, error) {
	p, ok := a.proofs[id]
	if !ok {
		return nil, fmt.Errorf("proof %s: %w", id, capability.ErrNotFound)
	}
	if p.rec.State != s {
		return nil, fmt.Errorf("proof %s is %s, want %s: %w", id, p.rec.State, s, ErrState)
	}
	return p, nil
}

func (a *Agent) moveProof(p *proof, s capability.ProofState) {
	prev := p.rec.State
	p.rec.State = s
	a.emit(capability.NewProofEvent(p.rec, prev))
}

// RequestProof sends the proof request over a completed connection.
func (a *Agent) RequestProof(ctx context.Context, opts capability.ProofOptions) (*capability.ProofRecord, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	peer, peerConnID, err := a.completed(opts.ConnectionID)
	if err != nil {
		return nil, err
	}
	req := opts.Request
	if req.Nonce == "" {
		req.Nonce = utils.NewNonceStr()
	}
	p := &proof{
		rec: capability.ProofRecord{
			ID:           utils.UUID(),
			State:        capability.ProofRequestSent,
			Role:         capability.RoleVerifier,
			ConnectionID: opts.ConnectionID,
			ThreadID:     utils.UUID(),
			Name:         req.Name,
			CreatedAt:    time.Now(),
		},
		request: req,
		peer:    peer,
	}
	a.lk.Lock()
	a.proofs[p.rec.ID] = p
	rec := p.rec
	a.emit(capability.NewProofEvent(rec, ""))
	a.lk.Unlock()

	if err := peer.receiveProofRequest(peerConnID, a, rec, req); err != nil {
		a.abandonProof(rec.ID)
		return nil, err
	}
	return &rec, nil
}

func (a *Agent) receiveProofRequest(connectionID string, from *Agent, req capability.ProofRecord, pr capability.ProofRequest) error {
	a.lk.Lock()
	defer a.lk.Unlock()

	if _, ok := a.connections[connectionID]; !ok {
		return fmt.Errorf("connection %s: %w", connectionID, capability.ErrNotFound)
	}
	p := &proof{
		rec: capability.ProofRecord{
			ID:           utils.UUID(),
			State:        capability.ProofRequestReceived,
			Role:         capability.RoleProver,
			ConnectionID: connectionID,
			ThreadID:     req.ThreadID,
			Name:         req.Name,
			CreatedAt:    time.Now(),
		},
		request: pr,
		peer:    from,
		peerID:  req.ID,
	}
	a.proofs[p.rec.ID] = p
	a.emit(capability.NewProofEvent(p.rec, ""))
	return nil
}

// SelectCredentialsForRequest picks the newest stored credential for every
// referent. ErrNoCredentials tells that some referent can't be answered.
func (a *Agent) SelectCredentialsForRequest(ctx context.Context, proofRecordID string) (*capability.SelectedCredentials, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	a.lk.Lock()
	defer a.lk.Unlock()

	p, ok := a.proofs[proofRecordID]
	if !ok {
		return nil, fmt.Errorf("proof %s: %w", proofRecordID, capability.ErrNotFound)
	}
	return selectCredentials(p.request, a.storedCredentials())
}

func selectCredentials(req capability.ProofRequest, creds []capability.CredentialRecord) (*capability.SelectedCredentials, error) {
	sel := &capability.SelectedCredentials{
		Attributes: make(map[string]string, len(req.RequestedAttributes)),
		Predicates: make(map[string]string, len(req.RequestedPredicates)),
	}
	for ref, ra := range req.RequestedAttributes {
		c, ok := newest(creds, func(c capability.CredentialRecord) bool {
			_, has := c.Value(ra.Name)
			return has && restricted(ra.Restrictions, c.CredentialDefinitionID, c.SchemaID)
		})
		if !ok {
			return nil, fmt.Errorf("attribute %s: %w", ref, capability.ErrNoCredentials)
		}
		sel.Attributes[ref] = c.ID
	}
	for ref, rp := range req.RequestedPredicates {
		c, ok := newest(creds, func(c capability.CredentialRecord) bool {
			v, has := c.Value(rp.Name)
			return has && holds(rp, v) &&
				restricted(rp.Restrictions, c.CredentialDefinitionID, c.SchemaID)
		})
		if !ok {
			return nil, fmt.Errorf("predicate %s: %w", ref, capability.ErrNoCredentials)
		}
		sel.Predicates[ref] = c.ID
	}
	return sel, nil
}

// newest assumes creds is sorted oldest first.
func newest(creds []capability.CredentialRecord, match func(capability.CredentialRecord) bool) (capability.CredentialRecord, bool) {
	for i := len(creds) - 1; i >= 0; i-- {
		if match(creds[i]) {
			return creds[i], true
		}
	}
	return capability.CredentialRecord{}, false
}

// restricted tells if a credential passes one of the restrictions. No
// restrictions pass everything.
func restricted(rs []capability.Restriction, credDefID, schemaID string) bool {
	if len(rs) == 0 {
		return true
	}
	for _, r := range rs {
		if (r.CredDefID == "" || r.CredDefID == credDefID) &&
			(r.SchemaID == "" || r.SchemaID == schemaID) {
			return true
		}
	}
	return false
}

func holds(rp capability.RequestedPredicate, value string) bool {
	n, err := strconv.Atoi(value)
	if err != nil {
		return false
	}
	switch rp.PType {
	case ">=":
		return n >= rp.PValue
	case ">":
		return n > rp.PValue
	case "<=":
		return n <= rp.PValue
	case "<":
		return n < rp.PValue
	}
	return false
}

// AcceptProofRequest presents the selected credentials. A nil selection
// selects automatically.
func (a *Agent) AcceptProofRequest(ctx context.Context, proofRecordID string, sel *capability.SelectedCredentials) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	a.lk.Lock()
	p, err := a.proofIn(proofRecordID, capability.ProofRequestReceived)
	if err != nil {
		a.lk.Unlock()
		return err
	}
	if sel == nil {
		sel, err = selectCredentials(p.request, a.storedCredentials())
		if err != nil {
			a.lk.Unlock()
			return err
		}
	}
	pres, err := a.present(p.request, sel)
	if err != nil {
		a.lk.Unlock()
		return err
	}
	a.moveProof(p, capability.ProofPresentationSent)
	peer, peerID := p.peer, p.peerID
	a.lk.Unlock()

	return peer.receivePresentation(peerID, proofRecordID, pres)
}

// present needs the lock.
func (a *Agent) present(req capability.ProofRequest, sel *capability.SelectedCredentials) (*presentation, error) {
	pres := &presentation{
		Attributes: make(map[string]presentedAttribute, len(req.RequestedAttributes)),
		Predicates: make(map[string]string, len(req.RequestedPredicates)),
	}
	stored := func(id string) (*credential, error) {
		c, ok := a.credentials[id]
		if !ok || c.rec.State != capability.CredentialDone {
			return nil, fmt.Errorf("credential %s: %w", id, capability.ErrNotFound)
		}
		return c, nil
	}
	for ref, ra := range req.RequestedAttributes {
		c, err := stored(sel.Attributes[ref])
		if err != nil {
			return nil, err
		}
		v, ok := c.rec.Value(ra.Name)
		if !ok {
			return nil, fmt.Errorf("credential %s has no %s: %w", c.rec.ID, ra.Name, capability.ErrNoCredentials)
		}
		pres.Attributes[ref] = presentedAttribute{Value: v, ThreadID: c.rec.ThreadID}
	}
	for ref, rp := range req.RequestedPredicates {
		c, err := stored(sel.Predicates[ref])
		if err != nil {
			return nil, err
		}
		if v, _ := c.rec.Value(rp.Name); !holds(rp, v) {
			return nil, fmt.Errorf("credential %s can't prove %s: %w", c.rec.ID, ref, capability.ErrNoCredentials)
		}
		pres.Predicates[ref] = c.rec.ThreadID
	}
	return pres, nil
}

func (a *Agent) receivePresentation(id, proverID string, pres *presentation) error {
	a.lk.Lock()
	defer a.lk.Unlock()

	p, err := a.proofIn(id, capability.ProofRequestSent)
	if err != nil {
		return err
	}
	p.peerID = proverID
	p.presentation = pres
	a.moveProof(p, capability.ProofPresentationReceived)
	return nil
}

// AcceptPresentation verifies the presentation against the issuance records
// of the network and acks it.
func (a *Agent) AcceptPresentation(ctx context.Context, proofRecordID string) (*capability.PresentationResult, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	a.lk.Lock()
	p, err := a.proofIn(proofRecordID, capability.ProofPresentationReceived)
	if err != nil {
		a.lk.Unlock()
		return nil, err
	}
	res := a.net.verify(p.request, p.presentation)
	a.moveProof(p, capability.ProofDone)
	peer, peerID := p.peer, p.peerID
	a.lk.Unlock()

	if err := peer.receiveProofAck(peerID); err != nil {
		glog.Warningf("proof %s ack: %v", proofRecordID, err)
	}
	return res, nil
}

func (n *Network) verify(req capability.ProofRequest, pres *presentation) *capability.PresentationResult {
	res := &capability.PresentationResult{
		IsVerified:         true,
		RevealedAttributes: make(map[string]string, len(pres.Attributes)),
		Predicates:         make(map[string]bool, len(pres.Predicates)),
	}
	issued := func(threadID string, rs []capability.Restriction) (issuedCredential, bool) {
		ic, ok := n.issuedCredential(threadID)
		if !ok {
			return ic, false
		}
		if _, ok := n.ledger.CredentialDefinition(ic.CredDefID); !ok {
			return ic, false
		}
		return ic, restricted(rs, ic.CredDefID, ic.SchemaID)
	}
	for ref, ra := range req.RequestedAttributes {
		pa, ok := pres.Attributes[ref]
		if !ok {
			res.IsVerified = false
			continue
		}
		ic, ok := issued(pa.ThreadID, ra.Restrictions)
		if !ok || ic.Attributes[ra.Name] != pa.Value {
			res.IsVerified = false
			continue
		}
		res.RevealedAttributes[ref] = pa.Value
	}
	for ref, rp := range req.RequestedPredicates {
		threadID, ok := pres.Predicates[ref]
		if !ok {
			res.IsVerified = false
			continue
		}
		ic, ok := issued(threadID, rp.Restrictions)
		if !ok || !holds(rp, ic.Attributes[rp.Name]) {
			res.IsVerified = false
			continue
		}
		res.Predicates[ref] = true
	}
	return res
}

func (a *Agent) receiveProofAck(id string) error {
	a.lk.Lock()
	defer a.lk.Unlock()

	p, err := a.proofIn(id, capability.ProofPresentationSent)
	if err != nil {
		return err
	}
	a.moveProof(p, capability.ProofDone)
	return nil
}

func (a *Agent) abandonProof(id string) {
	a.lk.Lock()
	defer a.lk.Unlock()

	if p, ok := a.proofs[id]; ok {
		a.moveProof(p, capability.ProofAbandoned)
	}
}
