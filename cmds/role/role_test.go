package role

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/findy-network/campus-agent/agent/bootstrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = flag.Set("logtostderr", "true")
	_ = flag.Set("v", "0")
	os.Exit(m.Run())
}

func valid() Cmd {
	c := DefaultValues
	c.Port = 3001
	return c
}

func TestCmd_Validate(t *testing.T) {
	tests := []struct {
		name string
		edit func(c *Cmd)
		ok   bool
	}{
		{"defaults", func(*Cmd) {}, true},
		{"public url", func(c *Cmd) { c.PublicURL = "https://issuer.campus.example" }, true},
		{"no port", func(c *Cmd) { c.Port = 0 }, false},
		{"bad public url", func(c *Cmd) { c.PublicURL = "issuer.campus.example" }, false},
		{"bad agent url", func(c *Cmd) { c.AgentURL = "localhost:3020" }, false},
		{"unknown runtime", func(c *Cmd) { c.Runtime = "indy" }, false},
		{"remote without url", func(c *Cmd) { c.Runtime = RuntimeRemote }, false},
		{"remote", func(c *Cmd) {
			c.Runtime = RuntimeRemote
			c.RuntimeURL = "http://localhost:3021"
		}, true},
		{"zero exchange ttl", func(c *Cmd) { c.ExchangeTTL = 0 }, false},
		{"zero sweep", func(c *Cmd) { c.SweepInterval = 0 }, false},
		{"negative url ttl", func(c *Cmd) { c.URLTTL = -time.Second }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.edit(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCmd_baseURL(t *testing.T) {
	c := valid()
	assert.Equal(t, "http://localhost:3001", c.baseURL())
	c.PublicURL = "https://issuer.campus.example/"
	assert.Equal(t, "https://issuer.campus.example", c.baseURL())
}

func TestDemoCmd_Validate(t *testing.T) {
	c := DemoCmd{
		Cmd:          DefaultValues,
		IssuerPort:   3001,
		HolderPort:   3002,
		VerifierPort: 3003,
		DIDMethod:    "cheqd",
	}
	assert.NoError(t, c.Validate())

	same := c
	same.VerifierPort = c.IssuerPort
	assert.Error(t, same.Validate())

	noMethod := c
	noMethod.DIDMethod = ""
	assert.Error(t, noMethod.Validate())

	// the demo is always loopback
	remote := c
	remote.Runtime = RuntimeRemote
	assert.NoError(t, remote.Validate())
}

func TestIssuerCmd_Validate(t *testing.T) {
	assert.NoError(t, IssuerCmd{Cmd: valid(), DIDMethod: "key"}.Validate())
	assert.Error(t, IssuerCmd{Cmd: valid()}.Validate())
}

func TestDemoCmd_Build(t *testing.T) {
	c := DemoCmd{
		Cmd:          DefaultValues,
		IssuerPort:   3001,
		HolderPort:   3002,
		VerifierPort: 3003,
		DIDMethod:    "cheqd",
	}
	services, err := c.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 3)
	for _, s := range services {
		s.Start()
	}
	defer func() {
		for _, s := range services {
			s.Stop()
		}
	}()
	assert.Equal(t, "issuer", services[0].Name)
	assert.Equal(t, "holder", services[1].Name)
	assert.Equal(t, "verifier", services[2].Name)

	rec := httptest.NewRecorder()
	services[0].Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st struct {
		Agent struct {
			SchemaID               string `json:"schemaId"`
			CredentialDefinitionID string `json:"credentialDefinitionId"`
			Initialized            bool   `json:"initialized"`
		} `json:"agent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Agent.Initialized)
	assert.Contains(t, st.Agent.CredentialDefinitionID, "did:cheqd:")
	assert.NotEmpty(t, st.Agent.SchemaID)

	rec = httptest.NewRecorder()
	services[2].Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"initialized":true`)
}

func TestBootstrapCmd_Exec(t *testing.T) {
	c := BootstrapCmd{
		Cmd:       DefaultValues,
		DIDMethod: "cheqd",
	}
	c.LedgerDB = filepath.Join(t.TempDir(), "ledger.bolt")
	require.NoError(t, c.Validate())

	var out bytes.Buffer
	_, err := c.Exec(&out)
	require.NoError(t, err)
	var first bootstrap.Identifiers
	require.NoError(t, json.Unmarshal(out.Bytes(), &first))
	assert.NotEmpty(t, first.IssuerDID)
	assert.NotEmpty(t, first.CredentialDefinitionID)

	// second run finds everything from the same ledger
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	data, err := res.JSON()
	require.NoError(t, err)
	var second bootstrap.Identifiers
	require.NoError(t, json.Unmarshal(data, &second))
	assert.Equal(t, first, second)
}

func TestBootstrapCmd_Validate(t *testing.T) {
	c := BootstrapCmd{Cmd: DefaultValues, DIDMethod: "cheqd"}
	assert.NoError(t, c.Validate())

	c.Runtime = RuntimeRemote
	assert.Error(t, c.Validate())
	c.RuntimeURL = "http://localhost:3021"
	assert.NoError(t, c.Validate())

	c.DIDMethod = ""
	assert.Error(t, c.Validate())
}
