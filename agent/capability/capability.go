/*
Package capability is the boundary between the exchange reactor and an agent
runtime. The runtime owns wallets, DIDComm transport and the AnonCreds
cryptography; this package only names the operations the reactor needs and
the records and events those operations produce.

Every operation may block on network or ledger I/O, which is why all of them
take a context.
*/
package capability

//go:generate mockgen -destination=mock/agent.go -package=mock . Agent

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a record id is unknown to the runtime.
	ErrNotFound = errors.New("record not found")

	// ErrNoCredentials is returned by SelectCredentialsForRequest when the
	// wallet has nothing that satisfies the proof request.
	ErrNoCredentials = errors.New("no credentials satisfy the proof request")
)

// Inviter mints out-of-band invitations and runs the connection protocol.
type Inviter interface {
	CreateInvitation(ctx context.Context, opts InvitationOptions) (*Invitation, error)
	ReceiveInvitationFromURL(ctx context.Context, url string) (*ConnectionRecord, error)
	AcceptConnectionRequest(ctx context.Context, connectionID string) error
}

// Issuance covers the issue-credential protocol for both parties.
type Issuance interface {
	OfferCredential(ctx context.Context, opts OfferOptions) (*CredentialRecord, error)
	AcceptCredentialRequest(ctx context.Context, credentialRecordID string) error
	AcceptCredentialOffer(ctx context.Context, credentialRecordID string) error
	AcceptCredential(ctx context.Context, credentialRecordID string) error
	// Credentials lists the done credential records of both roles.
	Credentials(ctx context.Context) ([]CredentialRecord, error)
}

// Presentation covers the present-proof protocol for both parties.
type Presentation interface {
	RequestProof(ctx context.Context, opts ProofOptions) (*ProofRecord, error)
	SelectCredentialsForRequest(ctx context.Context, proofRecordID string) (*SelectedCredentials, error)
	AcceptProofRequest(ctx context.Context, proofRecordID string, sel *SelectedCredentials) error
	AcceptPresentation(ctx context.Context, proofRecordID string) (*PresentationResult, error)
}

// Registry is the ledger side: DIDs, schemas and credential definitions.
type Registry interface {
	CreatedDIDs(ctx context.Context, method string) ([]string, error)
	CreateDID(ctx context.Context, opts DIDOptions) (*DIDResult, error)
	CreatedSchemas(ctx context.Context, issuerID string) ([]SchemaRecord, error)
	RegisterSchema(ctx context.Context, s Schema) (*SchemaResult, error)
	CreatedCredentialDefinitions(ctx context.Context, issuerID, schemaID string) ([]CredentialDefinitionRecord, error)
	RegisterCredentialDefinition(ctx context.Context, cd CredentialDefinition) (*CredentialDefinitionResult, error)
}

// EventSource delivers protocol state changes. Every subscriber sees every
// event in publish order. The returned cancel func stops the delivery and
// closes the channel.
type EventSource interface {
	Subscribe() (<-chan Event, func())
}

// Agent is the full capability set of an agent runtime.
type Agent interface {
	Inviter
	Issuance
	Presentation
	Registry
	EventSource
	Close() error
}
