package reactor

import (
	"context"
	"errors"

	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/golang/glog"
)

// HolderRole accepts every credential offer and answers proof requests with
// whatever the wallet can prove. The holder never invites, so its pending
// store stays empty.
func HolderRole() Role[struct{}] {
	return Role[struct{}]{
		Name: "holder",
		Credential: map[capability.CredentialState]CredentialStep{
			capability.CredentialOfferReceived: func(ctx context.Context, a capability.Agent, rec capability.CredentialRecord) error {
				return a.AcceptCredentialOffer(ctx, rec.ID)
			},
			capability.CredentialReceived: func(ctx context.Context, a capability.Agent, rec capability.CredentialRecord) error {
				return a.AcceptCredential(ctx, rec.ID)
			},
			capability.CredentialDone: func(_ context.Context, _ capability.Agent, rec capability.CredentialRecord) error {
				glog.V(1).Infoln("credential stored:", rec.ID)
				return nil
			},
		},
		Proof: map[capability.ProofState]ProofStep{
			capability.ProofRequestReceived: presentProof,
		},
	}
}

func presentProof(ctx context.Context, a capability.Agent, rec capability.ProofRecord) error {
	sel, err := a.SelectCredentialsForRequest(ctx, rec.ID)
	if errors.Is(err, capability.ErrNoCredentials) || (err == nil && sel == nil) {
		glog.Warningf("proof request %s: no matching credentials, not answering", rec.ID)
		return nil
	}
	if err != nil {
		return err
	}
	return a.AcceptProofRequest(ctx, rec.ID, sel)
}
