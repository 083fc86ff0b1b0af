package loopback

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/findy-network/campus-agent/agent/bus"
	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/findy-network/campus-agent/agent/utils"
	"github.com/golang/glog"
)

// ErrState is returned when an operation doesn't fit the record's state.
var ErrState = errors.New("invalid state for operation")

// Agent is a loopback implementation of capability.Agent.
type Agent struct {
	label  string
	key    string // connection key, did:key
	net    *Network
	events *bus.Station[capability.Event]

	lk          sync.Mutex
	invitations map[string]*oobRecord
	connections map[string]*connection
	credentials map[string]*credential
	proofs      map[string]*proof
}

var _ capability.Agent = (*Agent)(nil)

type oobRecord struct {
	id        string
	createdAt time.Time
}

type connection struct {
	rec        capability.ConnectionRecord
	peer       *Agent
	peerConnID string
}

// Label returns the agent's wallet label.
func (a *Agent) Label() string { return a.label }

// Key returns the agent's connection key.
func (a *Agent) Key() string { return a.key }

// Subscribe implements capability.EventSource.
func (a *Agent) Subscribe() (<-chan capability.Event, func()) {
	return a.events.Subscribe()
}

// Close leaves the network and closes all subscriptions.
func (a *Agent) Close() error {
	a.net.remove(a)
	a.events.Close()
	return nil
}

func (a *Agent) emit(ev capability.Event) {
	glog.V(5).Infoln(a.label, "emit", ev)
	a.events.Broadcast(ev)
}

func checkCtx(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

// --- registry

func (a *Agent) CreatedDIDs(ctx context.Context, method string) ([]string, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	return a.net.ledger.walletDIDs(a.label, method), nil
}

// CreateDID creates did:key DIDs and simulated did:cheqd DIDs.
func (a *Agent) CreateDID(ctx context.Context, opts capability.DIDOptions) (*capability.DIDResult, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	var did string
	switch opts.Method {
	case "key":
		k, err := newDIDKey()
		if err != nil {
			return nil, err
		}
		did = k
	case "cheqd":
		network := opts.Options["network"]
		if network == "" {
			network = "testnet"
		}
		did = "did:cheqd:" + network + ":" + utils.UUID()
	default:
		return &capability.DIDResult{
			State:  capability.StateFailed,
			Reason: fmt.Sprintf("unsupported DID method %q", opts.Method),
		}, nil
	}
	if err := a.net.ledger.addDID(a.label, did); err != nil {
		return nil, err
	}
	return &capability.DIDResult{State: capability.StateFinished, DID: did}, nil
}

func (a *Agent) CreatedSchemas(ctx context.Context, issuerID string) ([]capability.SchemaRecord, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	if issuerID == "" {
		return nil, nil
	}
	return a.net.ledger.Schemas(issuerID), nil
}

func (a *Agent) RegisterSchema(ctx context.Context, s capability.Schema) (*capability.SchemaResult, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	if !a.net.ledger.ownsDID(a.label, s.IssuerID) {
		return &capability.SchemaResult{State: capability.StateFailed,
			Reason: "issuer DID " + s.IssuerID + " is not in the wallet"}, nil
	}
	if s.Name == "" || s.Version == "" || len(s.AttrNames) == 0 {
		return &capability.SchemaResult{State: capability.StateFailed,
			Reason: "schema needs name, version and attributes"}, nil
	}
	rec := capability.SchemaRecord{
		SchemaID: s.IssuerID + "/resources/" + utils.UUID(),
		Schema:   s,
	}
	rec.AttrNames = append([]string(nil), s.AttrNames...)
	if err := a.net.ledger.addSchema(rec); err != nil {
		return nil, err
	}
	return &capability.SchemaResult{State: capability.StateFinished, SchemaID: rec.SchemaID}, nil
}

func (a *Agent) CreatedCredentialDefinitions(ctx context.Context, issuerID, schemaID string) ([]capability.CredentialDefinitionRecord, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	if issuerID == "" {
		return nil, nil
	}
	return a.net.ledger.CredentialDefinitions(issuerID, schemaID), nil
}

func (a *Agent) RegisterCredentialDefinition(ctx context.Context, cd capability.CredentialDefinition) (*capability.CredentialDefinitionResult, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	if !a.net.ledger.ownsDID(a.label, cd.IssuerID) {
		return &capability.CredentialDefinitionResult{State: capability.StateFailed,
			Reason: "issuer DID " + cd.IssuerID + " is not in the wallet"}, nil
	}
	if _, ok := a.net.ledger.Schema(cd.SchemaID); !ok {
		return &capability.CredentialDefinitionResult{State: capability.StateFailed,
			Reason: "schema " + cd.SchemaID + " not found"}, nil
	}
	rec := capability.CredentialDefinitionRecord{
		CredentialDefinitionID: cd.IssuerID + "/resources/" + utils.UUID(),
		Type:                   "CL",
		CredentialDefinition:   cd,
	}
	if err := a.net.ledger.addCredDef(rec); err != nil {
		return nil, err
	}
	return &capability.CredentialDefinitionResult{State: capability.StateFinished,
		CredentialDefinitionID: rec.CredentialDefinitionID}, nil
}

// --- connections

// CreateInvitation mints an out-of-band invitation whose recipient key is
// the agent's connection key.
func (a *Agent) CreateInvitation(ctx context.Context, opts capability.InvitationOptions) (*capability.Invitation, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	label := opts.Label
	if label == "" {
		label = a.label
	}
	handshakes := opts.HandshakeProtocols
	if len(handshakes) == 0 {
		handshakes = []string{capability.HandshakeDIDExchange}
	}
	inv := oobInvitation{
		Type:               invitationType,
		ID:                 utils.UUID(),
		Label:              label,
		HandshakeProtocols: handshakes,
		Services: []oobService{{
			ID:              "#inline-0",
			Type:            "did-communication",
			RecipientKeys:   []string{a.key},
			ServiceEndpoint: strings.TrimRight(opts.Domain, "/"),
		}},
	}
	u, err := inv.toURL(opts.Domain)
	if err != nil {
		return nil, err
	}

	a.lk.Lock()
	a.invitations[inv.ID] = &oobRecord{id: inv.ID, createdAt: time.Now()}
	a.lk.Unlock()

	return &capability.Invitation{RecordID: inv.ID, URL: u}, nil
}

// ReceiveInvitationFromURL starts the DID exchange with the inviter.
func (a *Agent) ReceiveInvitationFromURL(ctx context.Context, invitationURL string) (*capability.ConnectionRecord, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	inv, err := parseInvitationURL(invitationURL)
	if err != nil {
		return nil, err
	}
	inviter, ok := a.net.agent(inv.Services[0].RecipientKeys[0])
	if !ok {
		return nil, fmt.Errorf("no agent for invitation %s: %w", inv.ID, capability.ErrNotFound)
	}

	c := &connection{
		rec: capability.ConnectionRecord{
			ID:          utils.UUID(),
			State:       capability.ConnectionRequestSent,
			OutOfBandID: inv.ID,
			TheirLabel:  inv.Label,
			CreatedAt:   time.Now(),
		},
		peer: inviter,
	}
	a.lk.Lock()
	a.connections[c.rec.ID] = c
	rec := c.rec
	a.emit(capability.NewConnectionEvent(rec, capability.ConnectionInvitationReceived))
	a.lk.Unlock()

	peerConnID, err := inviter.receiveRequest(inv.ID, a, rec.ID)
	if err != nil {
		a.setConnectionState(rec.ID, capability.ConnectionAbandoned)
		return nil, err
	}
	a.lk.Lock()
	c.peerConnID = peerConnID
	a.lk.Unlock()
	return &rec, nil
}

func (a *Agent) receiveRequest(oobID string, from *Agent, fromConnID string) (string, error) {
	a.lk.Lock()
	defer a.lk.Unlock()

	if _, ok := a.invitations[oobID]; !ok {
		return "", fmt.Errorf("invitation %s: %w", oobID, capability.ErrNotFound)
	}
	c := &connection{
		rec: capability.ConnectionRecord{
			ID:          utils.UUID(),
			State:       capability.ConnectionRequestReceived,
			OutOfBandID: oobID,
			TheirLabel:  from.label,
			CreatedAt:   time.Now(),
		},
		peer:       from,
		peerConnID: fromConnID,
	}
	a.connections[c.rec.ID] = c
	a.emit(capability.NewConnectionEvent(c.rec, capability.ConnectionInvitationSent))
	return c.rec.ID, nil
}

// AcceptConnectionRequest sends the DID exchange response.
func (a *Agent) AcceptConnectionRequest(ctx context.Context, connectionID string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	a.lk.Lock()
	c, ok := a.connections[connectionID]
	if !ok {
		a.lk.Unlock()
		return fmt.Errorf("connection %s: %w", connectionID, capability.ErrNotFound)
	}
	if c.rec.State != capability.ConnectionRequestReceived {
		a.lk.Unlock()
		return fmt.Errorf("connection %s is %s: %w", connectionID, c.rec.State, ErrState)
	}
	c.rec.State = capability.ConnectionResponseSent
	a.emit(capability.NewConnectionEvent(c.rec, capability.ConnectionRequestReceived))
	peer, peerConnID := c.peer, c.peerConnID
	a.lk.Unlock()

	if err := peer.receiveResponse(peerConnID); err != nil {
		return err
	}
	a.setConnectionState(connectionID, capability.ConnectionCompleted)
	return nil
}

func (a *Agent) receiveResponse(connectionID string) error {
	a.lk.Lock()
	defer a.lk.Unlock()

	c, ok := a.connections[connectionID]
	if !ok {
		return fmt.Errorf("connection %s: %w", connectionID, capability.ErrNotFound)
	}
	prev := c.rec.State
	c.rec.State = capability.ConnectionResponseReceived
	a.emit(capability.NewConnectionEvent(c.rec, prev))
	c.rec.State = capability.ConnectionCompleted
	a.emit(capability.NewConnectionEvent(c.rec, capability.ConnectionResponseReceived))
	return nil
}

func (a *Agent) setConnectionState(id string, s capability.ConnectionState) {
	a.lk.Lock()
	defer a.lk.Unlock()

	c, ok := a.connections[id]
	if !ok {
		return
	}
	prev := c.rec.State
	c.rec.State = s
	a.emit(capability.NewConnectionEvent(c.rec, prev))
}

// Connections lists the connection records.
func (a *Agent) Connections() []capability.ConnectionRecord {
	a.lk.Lock()
	list := make([]capability.ConnectionRecord, 0, len(a.connections))
	for _, c := range a.connections {
		list = append(list, c.rec)
	}
	a.lk.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}

// completed returns the peer of a completed connection.
func (a *Agent) completed(connectionID string) (*Agent, string, error) {
	a.lk.Lock()
	defer a.lk.Unlock()

	c, ok := a.connections[connectionID]
	if !ok {
		return nil, "", fmt.Errorf("connection %s: %w", connectionID, capability.ErrNotFound)
	}
	if c.rec.State != capability.ConnectionCompleted {
		return nil, "", fmt.Errorf("connection %s is %s: %w", connectionID, c.rec.State, ErrState)
	}
	return c.peer, c.peerConnID, nil
}
