package capability

import "fmt"

// EventType tells which record an Event carries.
type EventType int

const (
	ConnectionStateChanged EventType = 0 + iota
	CredentialStateChanged
	ProofStateChanged
)

func (t EventType) String() string {
	return [...]string{"ConnectionStateChanged", "CredentialStateChanged",
		"ProofStateChanged"}[t]
}

// Event is a state change notification from the runtime. Exactly one of the
// record pointers is set, matching Type.
type Event struct {
	Type          EventType         `json:"type"`
	PreviousState string            `json:"previousState,omitempty"`
	Connection    *ConnectionRecord `json:"connectionRecord,omitempty"`
	Credential    *CredentialRecord `json:"credentialRecord,omitempty"`
	Proof         *ProofRecord      `json:"proofRecord,omitempty"`
}

// NewConnectionEvent builds a ConnectionStateChanged event from a copy of rec.
func NewConnectionEvent(rec ConnectionRecord, prev ConnectionState) Event {
	return Event{Type: ConnectionStateChanged, PreviousState: string(prev), Connection: &rec}
}

// NewCredentialEvent builds a CredentialStateChanged event from a copy of rec.
func NewCredentialEvent(rec CredentialRecord, prev CredentialState) Event {
	rec.Attributes = append([]Attribute(nil), rec.Attributes...)
	return Event{Type: CredentialStateChanged, PreviousState: string(prev), Credential: &rec}
}

// NewProofEvent builds a ProofStateChanged event from a copy of rec.
func NewProofEvent(rec ProofRecord, prev ProofState) Event {
	return Event{Type: ProofStateChanged, PreviousState: string(prev), Proof: &rec}
}

func (e Event) String() string {
	switch {
	case e.Connection != nil:
		return fmt.Sprintf("%s %s: %s -> %s", e.Type, e.Connection.ID, e.PreviousState, e.Connection.State)
	case e.Credential != nil:
		return fmt.Sprintf("%s %s: %s -> %s", e.Type, e.Credential.ID, e.PreviousState, e.Credential.State)
	case e.Proof != nil:
		return fmt.Sprintf("%s %s: %s -> %s", e.Type, e.Proof.ID, e.PreviousState, e.Proof.State)
	}
	return e.Type.String()
}
