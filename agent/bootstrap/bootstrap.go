/*
Package bootstrap makes sure the issuer has a DID, the credential schema and a
credential definition on the ledger. Existing ones are reused so that running
it again registers nothing new.
*/
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/findy-network/campus-agent/agent/campus"
	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Setup tells what to find or create.
type Setup struct {
	DID    capability.DIDOptions
	Schema capability.Schema
	Tag    string
}

// DefaultSetup is the student identity schema under a DID of method.
func DefaultSetup(method string) Setup {
	return Setup{
		DID: capability.DIDOptions{Method: method},
		Schema: capability.Schema{
			Name:      campus.SchemaName,
			Version:   campus.SchemaVersion,
			AttrNames: campus.SchemaAttributes(),
		},
		Tag: campus.DefinitionTag,
	}
}

// Identifiers are the results. They don't change after Run.
type Identifiers struct {
	IssuerDID              string `json:"issuerDid"`
	SchemaID               string `json:"schemaId"`
	CredentialDefinitionID string `json:"credentialDefinitionId"`
}

// Run finds or creates the issuer DID, the schema and the credential
// definition. Errors are fatal for the caller.
func Run(ctx context.Context, reg capability.Registry, setup Setup) (ids *Identifiers, err error) {
	defer err2.Handle(&err, "bootstrap")

	did := try.To1(IssuerDID(ctx, reg, setup.DID))
	schemaID := try.To1(SchemaID(ctx, reg, did, setup.Schema))
	credDefID := try.To1(CredentialDefinitionID(ctx, reg, did, schemaID, setup.Tag))

	ids = &Identifiers{
		IssuerDID:              did,
		SchemaID:               schemaID,
		CredentialDefinitionID: credDefID,
	}
	glog.V(1).Infof("issuer %s, schema %s, cred def %s", did, schemaID, credDefID)
	return ids, nil
}

// IssuerDID returns the first created DID of the method or creates one.
func IssuerDID(ctx context.Context, reg capability.Registry, opts capability.DIDOptions) (did string, err error) {
	defer err2.Handle(&err, "issuer DID")

	prefix := "did:" + opts.Method + ":"
	dids := try.To1(reg.CreatedDIDs(ctx, opts.Method))
	for _, d := range dids {
		if strings.HasPrefix(d, prefix) {
			glog.V(3).Infoln("using existing DID", d)
			return d, nil
		}
	}

	res := try.To1(reg.CreateDID(ctx, opts))
	if res.State != capability.StateFinished || res.DID == "" {
		return "", fmt.Errorf("failed to create %s DID: state %s: %s", opts.Method, res.State, res.Reason)
	}
	glog.V(1).Infoln("DID created", res.DID)
	return res.DID, nil
}

// SchemaID returns the id of the issuer's schema with the same name and
// version or registers s.
func SchemaID(ctx context.Context, reg capability.Registry, issuerID string, s capability.Schema) (id string, err error) {
	defer err2.Handle(&err)

	for _, rec := range try.To1(reg.CreatedSchemas(ctx, issuerID)) {
		if rec.Name == s.Name && rec.Version == s.Version {
			glog.V(3).Infoln("using existing schema", rec.SchemaID)
			return rec.SchemaID, nil
		}
	}

	s.IssuerID = issuerID
	res := try.To1(reg.RegisterSchema(ctx, s))
	if res.State == capability.StateFailed || res.SchemaID == "" {
		return "", fmt.Errorf("schema registration failed: %s", res.Reason)
	}
	glog.V(1).Infoln("schema registered", res.SchemaID)
	return res.SchemaID, nil
}

// CredentialDefinitionID returns the id of the issuer's definition for the
// schema with tag or registers one without revocation.
func CredentialDefinitionID(ctx context.Context, reg capability.Registry, issuerID, schemaID, tag string) (id string, err error) {
	defer err2.Handle(&err)

	for _, rec := range try.To1(reg.CreatedCredentialDefinitions(ctx, issuerID, schemaID)) {
		if rec.Tag == tag {
			glog.V(3).Infoln("using existing cred def", rec.CredentialDefinitionID)
			return rec.CredentialDefinitionID, nil
		}
	}

	res := try.To1(reg.RegisterCredentialDefinition(ctx, capability.CredentialDefinition{
		IssuerID: issuerID,
		SchemaID: schemaID,
		Tag:      tag,
	}))
	if res.State == capability.StateFailed || res.CredentialDefinitionID == "" {
		return "", fmt.Errorf("credential definition registration failed: %s", res.Reason)
	}
	glog.V(1).Infoln("cred def registered", res.CredentialDefinitionID)
	return res.CredentialDefinitionID, nil
}
