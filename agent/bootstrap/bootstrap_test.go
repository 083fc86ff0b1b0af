package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/findy-network/campus-agent/agent/capability/mock"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	issuerDID = "did:cheqd:testnet:0f6e5a4c-1c5b-4a0e-9a4e-1f2b3c4d5e6f"
	schemaID  = issuerDID + "/resources/schema-1"
	credDefID = issuerDID + "/resources/creddef-1"
)

func TestRun_CreatesEverything(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := mock.NewMockAgent(ctrl)
	ctx := context.Background()
	setup := DefaultSetup("cheqd")

	gomock.InOrder(
		reg.EXPECT().CreatedDIDs(ctx, "cheqd").Return([]string{"did:key:z6Mk"}, nil),
		reg.EXPECT().CreateDID(ctx, setup.DID).
			Return(&capability.DIDResult{State: capability.StateFinished, DID: issuerDID}, nil),
		reg.EXPECT().CreatedSchemas(ctx, issuerDID).Return(nil, nil),
		reg.EXPECT().RegisterSchema(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, s capability.Schema) (*capability.SchemaResult, error) {
				assert.Equal(t, issuerDID, s.IssuerID)
				assert.Equal(t, "Student Identity", s.Name)
				assert.Equal(t, "1.0", s.Version)
				assert.Equal(t, []string{"name", "studentId", "university", "isStudent", "birthDate"}, s.AttrNames)
				return &capability.SchemaResult{State: capability.StateFinished, SchemaID: schemaID}, nil
			}),
		reg.EXPECT().CreatedCredentialDefinitions(ctx, issuerDID, schemaID).Return(nil, nil),
		reg.EXPECT().RegisterCredentialDefinition(ctx, capability.CredentialDefinition{
			IssuerID: issuerDID, SchemaID: schemaID, Tag: "default",
		}).Return(&capability.CredentialDefinitionResult{State: capability.StateFinished, CredentialDefinitionID: credDefID}, nil),
	)

	ids, err := Run(ctx, reg, setup)
	require.NoError(t, err)
	assert.Equal(t, &Identifiers{IssuerDID: issuerDID, SchemaID: schemaID, CredentialDefinitionID: credDefID}, ids)
}

func TestRun_ReusesExisting(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := mock.NewMockAgent(ctrl)
	ctx := context.Background()
	setup := DefaultSetup("cheqd")

	reg.EXPECT().CreatedDIDs(ctx, "cheqd").Return([]string{issuerDID}, nil).Times(2)
	reg.EXPECT().CreatedSchemas(ctx, issuerDID).Return([]capability.SchemaRecord{
		{SchemaID: "other", Schema: capability.Schema{Name: "Student Identity", Version: "0.9"}},
		{SchemaID: schemaID, Schema: capability.Schema{Name: "Student Identity", Version: "1.0"}},
	}, nil).Times(2)
	reg.EXPECT().CreatedCredentialDefinitions(ctx, issuerDID, schemaID).Return([]capability.CredentialDefinitionRecord{
		{CredentialDefinitionID: credDefID, CredentialDefinition: capability.CredentialDefinition{Tag: "default"}},
	}, nil).Times(2)
	reg.EXPECT().CreateDID(gomock.Any(), gomock.Any()).Times(0)
	reg.EXPECT().RegisterSchema(gomock.Any(), gomock.Any()).Times(0)
	reg.EXPECT().RegisterCredentialDefinition(gomock.Any(), gomock.Any()).Times(0)

	first, err := Run(ctx, reg, setup)
	require.NoError(t, err)
	second, err := Run(ctx, reg, setup)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, schemaID, second.SchemaID)
}

func TestRun_Failures(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		expect func(reg *mock.MockAgent)
		errMsg string
	}{
		{"did not finished", func(reg *mock.MockAgent) {
			reg.EXPECT().CreatedDIDs(ctx, "cheqd").Return(nil, nil)
			reg.EXPECT().CreateDID(ctx, gomock.Any()).
				Return(&capability.DIDResult{State: capability.StateFailed, Reason: "no funds"}, nil)
		}, "no funds"},
		{"runtime error", func(reg *mock.MockAgent) {
			reg.EXPECT().CreatedDIDs(ctx, "cheqd").Return(nil, errors.New("ledger unreachable"))
		}, "ledger unreachable"},
		{"schema failed", func(reg *mock.MockAgent) {
			reg.EXPECT().CreatedDIDs(ctx, "cheqd").Return([]string{issuerDID}, nil)
			reg.EXPECT().CreatedSchemas(ctx, issuerDID).Return(nil, nil)
			reg.EXPECT().RegisterSchema(ctx, gomock.Any()).
				Return(&capability.SchemaResult{State: capability.StateFailed, Reason: "bad attrs"}, nil)
		}, "schema registration failed: bad attrs"},
		{"cred def failed", func(reg *mock.MockAgent) {
			reg.EXPECT().CreatedDIDs(ctx, "cheqd").Return([]string{issuerDID}, nil)
			reg.EXPECT().CreatedSchemas(ctx, issuerDID).Return([]capability.SchemaRecord{
				{SchemaID: schemaID, Schema: capability.Schema{Name: "Student Identity", Version: "1.0"}},
			}, nil)
			reg.EXPECT().CreatedCredentialDefinitions(ctx, issuerDID, schemaID).Return(nil, nil)
			reg.EXPECT().RegisterCredentialDefinition(ctx, gomock.Any()).
				Return(&capability.CredentialDefinitionResult{State: capability.StateFailed, Reason: "timeout"}, nil)
		}, "credential definition registration failed: timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			reg := mock.NewMockAgent(ctrl)
			tt.expect(reg)

			ids, err := Run(ctx, reg, DefaultSetup("cheqd"))
			require.Error(t, err)
			assert.Nil(t, ids)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
