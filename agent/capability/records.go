package capability

import "time"

// HandshakeDIDExchange is the only handshake protocol the roles offer.
const HandshakeDIDExchange = "https://didcomm.org/didexchange/1.x"

// ConnectionState is the RFC 0023 DID exchange state as the runtime reports it.
type ConnectionState string

const (
	ConnectionStart              ConnectionState = "start"
	ConnectionInvitationSent     ConnectionState = "invitation-sent"
	ConnectionInvitationReceived ConnectionState = "invitation-received"
	ConnectionRequestSent        ConnectionState = "request-sent"
	ConnectionRequestReceived    ConnectionState = "request-received"
	ConnectionResponseSent       ConnectionState = "response-sent"
	ConnectionResponseReceived   ConnectionState = "response-received"
	ConnectionCompleted          ConnectionState = "completed"
	ConnectionAbandoned          ConnectionState = "abandoned"
)

// CredentialState is the issue-credential 2.0 state.
type CredentialState string

const (
	CredentialProposalSent     CredentialState = "proposal-sent"
	CredentialProposalReceived CredentialState = "proposal-received"
	CredentialOfferSent        CredentialState = "offer-sent"
	CredentialOfferReceived    CredentialState = "offer-received"
	CredentialDeclined         CredentialState = "declined"
	CredentialRequestSent      CredentialState = "request-sent"
	CredentialRequestReceived  CredentialState = "request-received"
	CredentialIssued           CredentialState = "credential-issued"
	CredentialReceived         CredentialState = "credential-received"
	CredentialDone             CredentialState = "done"
	CredentialAbandoned        CredentialState = "abandoned"
)

// ProofState is the present-proof 2.0 state.
type ProofState string

const (
	ProofProposalSent         ProofState = "proposal-sent"
	ProofProposalReceived     ProofState = "proposal-received"
	ProofRequestSent          ProofState = "request-sent"
	ProofRequestReceived      ProofState = "request-received"
	ProofPresentationSent     ProofState = "presentation-sent"
	ProofPresentationReceived ProofState = "presentation-received"
	ProofDeclined             ProofState = "declined"
	ProofDone                 ProofState = "done"
	ProofAbandoned            ProofState = "abandoned"
)

// Role of the local party in a credential or proof exchange.
type Role string

const (
	RoleIssuer   Role = "issuer"
	RoleHolder   Role = "holder"
	RoleVerifier Role = "verifier"
	RoleProver   Role = "prover"
)

// InvitationOptions are given to CreateInvitation.
type InvitationOptions struct {
	Label              string   `json:"label,omitempty"`
	Domain             string   `json:"domain,omitempty"`
	HandshakeProtocols []string `json:"handshakeProtocols"`
}

// Invitation is a minted out-of-band invitation. RecordID is the out-of-band
// record id which later shows up as OutOfBandID of the connection.
type Invitation struct {
	RecordID string `json:"id"`
	URL      string `json:"invitationUrl"`
}

type ConnectionRecord struct {
	ID          string          `json:"id"`
	State       ConnectionState `json:"state"`
	OutOfBandID string          `json:"outOfBandId,omitempty"`
	TheirLabel  string          `json:"theirLabel,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Attribute is a credential attribute as name/value strings.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type CredentialRecord struct {
	ID                     string          `json:"id"`
	State                  CredentialState `json:"state"`
	Role                   Role            `json:"role"`
	ConnectionID           string          `json:"connectionId,omitempty"`
	ThreadID               string          `json:"threadId,omitempty"`
	CredentialDefinitionID string          `json:"credentialDefinitionId,omitempty"`
	SchemaID               string          `json:"schemaId,omitempty"`
	Attributes             []Attribute     `json:"attributes,omitempty"`
	CreatedAt              time.Time       `json:"createdAt"`
}

// Value returns the value of the named attribute.
func (c CredentialRecord) Value(name string) (string, bool) {
	for _, a := range c.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

type ProofRecord struct {
	ID           string     `json:"id"`
	State        ProofState `json:"state"`
	Role         Role       `json:"role"`
	ConnectionID string     `json:"connectionId,omitempty"`
	ThreadID     string     `json:"threadId,omitempty"`
	Name         string     `json:"name,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// OfferOptions are given to OfferCredential.
type OfferOptions struct {
	ConnectionID           string      `json:"connectionId"`
	CredentialDefinitionID string      `json:"credentialDefinitionId"`
	Attributes             []Attribute `json:"attributes"`
}

// ProofOptions are given to RequestProof.
type ProofOptions struct {
	ConnectionID string       `json:"connectionId"`
	Request      ProofRequest `json:"proofRequest"`
}

// Restriction limits which credentials may answer a proof request.
type Restriction struct {
	CredDefID string `json:"cred_def_id,omitempty"`
	SchemaID  string `json:"schema_id,omitempty"`
}

type RequestedAttribute struct {
	Name         string        `json:"name"`
	Restrictions []Restriction `json:"restrictions,omitempty"`
}

type RequestedPredicate struct {
	Name         string        `json:"name"`
	PType        string        `json:"p_type"`
	PValue       int           `json:"p_value"`
	Restrictions []Restriction `json:"restrictions,omitempty"`
}

// ProofRequest is an AnonCreds proof request.
type ProofRequest struct {
	Name                string                        `json:"name"`
	Version             string                        `json:"version"`
	Nonce               string                        `json:"nonce,omitempty"`
	RequestedAttributes map[string]RequestedAttribute `json:"requested_attributes"`
	RequestedPredicates map[string]RequestedPredicate `json:"requested_predicates"`
}

// SelectedCredentials maps proof request referents to credential record ids.
type SelectedCredentials struct {
	Attributes map[string]string `json:"attributes"`
	Predicates map[string]string `json:"predicates"`
}

// PresentationResult is what the verifier learns from a presentation.
// RevealedAttributes are raw values keyed by referent, Predicates lists the
// predicate referents the presentation proves.
type PresentationResult struct {
	IsVerified         bool              `json:"isVerified"`
	RevealedAttributes map[string]string `json:"revealedAttributes"`
	Predicates         map[string]bool   `json:"predicates"`
}

// Registration states of ledger writes.
const (
	StateFinished = "finished"
	StateFailed   = "failed"
)

type DIDOptions struct {
	Method  string            `json:"method"`
	Options map[string]string `json:"options,omitempty"`
}

type DIDResult struct {
	State  string `json:"state"`
	DID    string `json:"did,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type Schema struct {
	IssuerID  string   `json:"issuerId"`
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	AttrNames []string `json:"attrNames"`
}

type SchemaRecord struct {
	SchemaID string `json:"schemaId"`
	Schema
}

type SchemaResult struct {
	State    string `json:"state"`
	SchemaID string `json:"schemaId,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type CredentialDefinition struct {
	IssuerID          string `json:"issuerId"`
	SchemaID          string `json:"schemaId"`
	Tag               string `json:"tag"`
	SupportRevocation bool   `json:"supportRevocation"`
}

type CredentialDefinitionRecord struct {
	CredentialDefinitionID string `json:"credentialDefinitionId"`
	Type                   string `json:"type"`
	CredentialDefinition
}

type CredentialDefinitionResult struct {
	State                  string `json:"state"`
	CredentialDefinitionID string `json:"credentialDefinitionId,omitempty"`
	Reason                 string `json:"reason,omitempty"`
}
