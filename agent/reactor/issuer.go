package reactor

import (
	"context"
	"errors"

	"github.com/findy-network/campus-agent/agent/campus"
	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/golang/glog"
)

// ErrNoCredDef is returned when the issuer has no credential definition to
// offer with.
var ErrNoCredDef = errors.New("credential definition not available")

// IssuerRole offers the student credential on every completed connection of
// a pending exchange. credDefID is read at offer time.
func IssuerRole(credDefID func() string) Role[campus.Student] {
	return Role[campus.Student]{
		Name:               "issuer",
		AcceptsConnections: true,
		FollowUp: func(ctx context.Context, a capability.Agent, connectionID string, s campus.Student) error {
			id := credDefID()
			if id == "" {
				return ErrNoCredDef
			}
			rec, err := a.OfferCredential(ctx, capability.OfferOptions{
				ConnectionID:           connectionID,
				CredentialDefinitionID: id,
				Attributes:             s.Attributes(),
			})
			if err != nil {
				return err
			}
			glog.V(1).Infof("credential offer %s sent to %s", rec.ID, s.StudentID)
			return nil
		},
		Credential: map[capability.CredentialState]CredentialStep{
			capability.CredentialRequestReceived: func(ctx context.Context, a capability.Agent, rec capability.CredentialRecord) error {
				return a.AcceptCredentialRequest(ctx, rec.ID)
			},
			capability.CredentialDone: func(_ context.Context, _ capability.Agent, rec capability.CredentialRecord) error {
				glog.V(1).Infoln("credential issued:", rec.ID)
				return nil
			},
		},
	}
}
