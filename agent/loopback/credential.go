package loopback

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/findy-network/campus-agent/agent/utils"
	"github.com/golang/glog"
)

type credential struct {
	rec    capability.CredentialRecord
	peer   *Agent
	peerID string // the other party's record id
}

// credentialIn returns record id if it is in state s. Caller holds the lock.
func (a *Agent) credentialIn(id string, s capability.CredentialState) (*credential, error) {
	c, ok := a.credentials[id]
	if !ok {
		return nil, fmt.Errorf("credential %s: %w", id, capability.ErrNotFound)
	}
	if c.rec.State != s {
		return nil, fmt.Errorf("credential %s is %s, want %s: %w", id, c.rec.State, s, ErrState)
	}
	return c, nil
}

func (a *Agent) moveCredential(c *credential, s capability.CredentialState) {
	prev := c.rec.State
	c.rec.State = s
	a.emit(capability.NewCredentialEvent(c.rec, prev))
}

// OfferCredential offers a credential of a definition on the ledger.
func (a *Agent) OfferCredential(ctx context.Context, opts capability.OfferOptions) (*capability.CredentialRecord, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	peer, peerConnID, err := a.completed(opts.ConnectionID)
	if err != nil {
		return nil, err
	}
	cd, ok := a.net.ledger.CredentialDefinition(opts.CredentialDefinitionID)
	if !ok {
		return nil, fmt.Errorf("credential definition %s: %w",
			opts.CredentialDefinitionID, capability.ErrNotFound)
	}
	schema, _ := a.net.ledger.Schema(cd.SchemaID)
	if err := checkAttributes(schema.AttrNames, opts.Attributes); err != nil {
		return nil, err
	}

	c := &credential{
		rec: capability.CredentialRecord{
			ID:                     utils.UUID(),
			State:                  capability.CredentialOfferSent,
			Role:                   capability.RoleIssuer,
			ConnectionID:           opts.ConnectionID,
			ThreadID:               utils.UUID(),
			CredentialDefinitionID: cd.CredentialDefinitionID,
			SchemaID:               cd.SchemaID,
			Attributes:             append([]capability.Attribute(nil), opts.Attributes...),
			CreatedAt:              time.Now(),
		},
		peer: peer,
	}
	a.lk.Lock()
	a.credentials[c.rec.ID] = c
	rec := c.rec
	a.emit(capability.NewCredentialEvent(rec, ""))
	a.lk.Unlock()

	if err := peer.receiveOffer(peerConnID, a, rec); err != nil {
		a.abandonCredential(rec.ID)
		return nil, err
	}
	return &rec, nil
}

func checkAttributes(names []string, attrs []capability.Attribute) error {
	if len(names) == 0 {
		return nil
	}
	if len(names) != len(attrs) {
		return fmt.Errorf("credential has %d attributes, schema %d", len(attrs), len(names))
	}
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	for _, at := range attrs {
		if !known[at.Name] {
			return fmt.Errorf("attribute %q not in schema", at.Name)
		}
	}
	return nil
}

func (a *Agent) receiveOffer(connectionID string, from *Agent, offer capability.CredentialRecord) error {
	a.lk.Lock()
	defer a.lk.Unlock()

	if _, ok := a.connections[connectionID]; !ok {
		return fmt.Errorf("connection %s: %w", connectionID, capability.ErrNotFound)
	}
	c := &credential{
		rec: capability.CredentialRecord{
			ID:                     utils.UUID(),
			State:                  capability.CredentialOfferReceived,
			Role:                   capability.RoleHolder,
			ConnectionID:           connectionID,
			ThreadID:               offer.ThreadID,
			CredentialDefinitionID: offer.CredentialDefinitionID,
			SchemaID:               offer.SchemaID,
			Attributes:             append([]capability.Attribute(nil), offer.Attributes...),
			CreatedAt:              time.Now(),
		},
		peer:   from,
		peerID: offer.ID,
	}
	a.credentials[c.rec.ID] = c
	a.emit(capability.NewCredentialEvent(c.rec, ""))
	return nil
}

// AcceptCredentialOffer sends the credential request.
func (a *Agent) AcceptCredentialOffer(ctx context.Context, credentialRecordID string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	a.lk.Lock()
	c, err := a.credentialIn(credentialRecordID, capability.CredentialOfferReceived)
	if err != nil {
		a.lk.Unlock()
		return err
	}
	a.moveCredential(c, capability.CredentialRequestSent)
	peer, peerID := c.peer, c.peerID
	a.lk.Unlock()

	return peer.receiveCredentialRequest(peerID, credentialRecordID)
}

func (a *Agent) receiveCredentialRequest(id, holderID string) error {
	a.lk.Lock()
	defer a.lk.Unlock()

	c, err := a.credentialIn(id, capability.CredentialOfferSent)
	if err != nil {
		return err
	}
	c.peerID = holderID
	a.moveCredential(c, capability.CredentialRequestReceived)
	return nil
}

// AcceptCredentialRequest issues the credential.
func (a *Agent) AcceptCredentialRequest(ctx context.Context, credentialRecordID string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	a.lk.Lock()
	c, err := a.credentialIn(credentialRecordID, capability.CredentialRequestReceived)
	if err != nil {
		a.lk.Unlock()
		return err
	}
	values := make(map[string]string, len(c.rec.Attributes))
	for _, at := range c.rec.Attributes {
		values[at.Name] = at.Value
	}
	a.net.recordIssued(c.rec.ThreadID, issuedCredential{
		CredDefID:  c.rec.CredentialDefinitionID,
		SchemaID:   c.rec.SchemaID,
		Attributes: values,
	})
	a.moveCredential(c, capability.CredentialIssued)
	peer, peerID := c.peer, c.peerID
	a.lk.Unlock()

	return peer.receiveCredential(peerID)
}

func (a *Agent) receiveCredential(id string) error {
	a.lk.Lock()
	defer a.lk.Unlock()

	c, err := a.credentialIn(id, capability.CredentialRequestSent)
	if err != nil {
		return err
	}
	a.moveCredential(c, capability.CredentialReceived)
	return nil
}

// AcceptCredential stores the credential and acks it.
func (a *Agent) AcceptCredential(ctx context.Context, credentialRecordID string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	a.lk.Lock()
	c, err := a.credentialIn(credentialRecordID, capability.CredentialReceived)
	if err != nil {
		a.lk.Unlock()
		return err
	}
	a.moveCredential(c, capability.CredentialDone)
	peer, peerID := c.peer, c.peerID
	a.lk.Unlock()

	return peer.receiveCredentialAck(peerID)
}

func (a *Agent) receiveCredentialAck(id string) error {
	a.lk.Lock()
	defer a.lk.Unlock()

	c, err := a.credentialIn(id, capability.CredentialIssued)
	if err != nil {
		return err
	}
	a.moveCredential(c, capability.CredentialDone)
	return nil
}

func (a *Agent) abandonCredential(id string) {
	a.lk.Lock()
	defer a.lk.Unlock()

	if c, ok := a.credentials[id]; ok {
		glog.V(3).Infoln(a.label, "abandon credential", id)
		a.moveCredential(c, capability.CredentialAbandoned)
	}
}

// Credentials returns the done credential records of either role, oldest
// first. Issued ones have RoleIssuer and held ones RoleHolder.
func (a *Agent) Credentials(ctx context.Context) ([]capability.CredentialRecord, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	a.lk.Lock()
	list := a.doneCredentials("")
	a.lk.Unlock()
	return list, nil
}

// storedCredentials are the credentials the wallet holds. Needs the lock.
func (a *Agent) storedCredentials() []capability.CredentialRecord {
	return a.doneCredentials(capability.RoleHolder)
}

// doneCredentials of role, all roles when role is empty. Needs the lock.
func (a *Agent) doneCredentials(role capability.Role) []capability.CredentialRecord {
	list := make([]capability.CredentialRecord, 0, len(a.credentials))
	for _, c := range a.credentials {
		if (role == "" || c.rec.Role == role) && c.rec.State == capability.CredentialDone {
			rec := c.rec
			rec.Attributes = append([]capability.Attribute(nil), rec.Attributes...)
			list = append(list, rec)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}
