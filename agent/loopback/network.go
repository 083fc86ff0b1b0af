/*
Package loopback is an in-process agent runtime. Agents of one Network talk
to each other with direct calls instead of DIDComm messages, and the Ledger
stands in for a verifiable data registry. It runs the same state machines as
a real runtime and emits the same events, but nothing is signed: presentation
verification compares the presented values to what the issuer issued.

The package exists for local development and for end-to-end tests of the
reactor without an external runtime.
*/
package loopback

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/findy-network/campus-agent/agent/bus"
	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/findy-network/campus-agent/agent/utils"
	"github.com/golang/glog"
	"github.com/hyperledger/aries-framework-go/pkg/vdr/fingerprint"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

const (
	invitationType = "https://didcomm.org/out-of-band/1.1/invitation"
	defaultDomain  = "didcomm://loopback"
)

// Network routes invitations between its agents.
type Network struct {
	ledger *Ledger

	lk     sync.RWMutex
	agents map[string]*Agent // by connection key (did:key)
	issued map[string]issuedCredential
}

type issuedCredential struct {
	CredDefID  string
	SchemaID   string
	Attributes map[string]string
}

// NewNetwork creates a network on the ledger. A nil ledger gives an in-memory
// one.
func NewNetwork(l *Ledger) *Network {
	if l == nil {
		l = NewLedger()
	}
	return &Network{
		ledger: l,
		agents: make(map[string]*Agent),
		issued: make(map[string]issuedCredential),
	}
}

// Ledger returns the network's ledger.
func (n *Network) Ledger() *Ledger {
	return n.ledger
}

// NewAgent creates and registers an agent. The label names its wallet on
// the ledger, so an agent created again with the same label sees the DIDs it
// created before.
func (n *Network) NewAgent(label string) (a *Agent, err error) {
	defer err2.Handle(&err, "new loopback agent %s", label)

	key := try.To1(newDIDKey())
	a = &Agent{
		label:       label,
		key:         key,
		net:         n,
		events:      bus.New[capability.Event](),
		invitations: make(map[string]*oobRecord),
		connections: make(map[string]*connection),
		credentials: make(map[string]*credential),
		proofs:      make(map[string]*proof),
	}

	n.lk.Lock()
	n.agents[key] = a
	n.lk.Unlock()

	glog.V(1).Infof("loopback agent %s: %s", label, key)
	return a, nil
}

func (n *Network) remove(a *Agent) {
	n.lk.Lock()
	defer n.lk.Unlock()
	delete(n.agents, a.key)
}

func (n *Network) agent(key string) (*Agent, bool) {
	n.lk.RLock()
	defer n.lk.RUnlock()
	a, ok := n.agents[key]
	return a, ok
}

func (n *Network) recordIssued(id string, c issuedCredential) {
	n.lk.Lock()
	defer n.lk.Unlock()
	n.issued[id] = c
}

func (n *Network) issuedCredential(id string) (issuedCredential, bool) {
	n.lk.RLock()
	defer n.lk.RUnlock()
	c, ok := n.issued[id]
	return c, ok
}

func newDIDKey() (string, error) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", err
	}
	didKey, _ := fingerprint.CreateDIDKey(pub)
	return didKey, nil
}

// oobInvitation is the out-of-band 1.1 invitation message.
type oobInvitation struct {
	Type               string       `json:"@type"`
	ID                 string       `json:"@id"`
	Label              string       `json:"label,omitempty"`
	HandshakeProtocols []string     `json:"handshake_protocols"`
	Services           []oobService `json:"services"`
}

type oobService struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	RecipientKeys   []string `json:"recipientKeys"`
	ServiceEndpoint string   `json:"serviceEndpoint"`
}

func (inv oobInvitation) toURL(domain string) (string, error) {
	data, err := json.Marshal(inv)
	if err != nil {
		return "", err
	}
	if domain == "" {
		domain = defaultDomain
	}
	return domain + "?oob=" + utils.EncodeB64(data), nil
}

func parseInvitationURL(s string) (inv oobInvitation, err error) {
	defer err2.Handle(&err, "parse invitation")

	u := try.To1(url.Parse(strings.TrimSpace(s)))
	oob := u.Query().Get("oob")
	if oob == "" {
		return inv, fmt.Errorf("no oob parameter in %q", s)
	}
	data := try.To1(utils.DecodeB64(oob))
	try.To(json.Unmarshal(data, &inv))
	if inv.Type != invitationType {
		return inv, fmt.Errorf("unsupported invitation type %q", inv.Type)
	}
	if len(inv.Services) == 0 || len(inv.Services[0].RecipientKeys) == 0 {
		return inv, fmt.Errorf("invitation %s has no recipient key", inv.ID)
	}
	return inv, nil
}
