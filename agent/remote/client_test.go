package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runtime(t *testing.T, setup func(r *mux.Router)) *Client {
	r := mux.NewRouter()
	setup(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	c := New(ts.URL, WithHTTPClient(ts.Client()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCreateInvitation(t *testing.T) {
	var got capability.InvitationOptions
	c := runtime(t, func(r *mux.Router) {
		r.HandleFunc("/oob/create-invitation", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			writeJSON(w, http.StatusOK, map[string]any{
				"invitationUrl":   "http://localhost:3001?oob=abc",
				"outOfBandRecord": map[string]string{"id": "oob-1"},
			})
		}).Methods(http.MethodPost)
	})

	inv, err := c.CreateInvitation(context.Background(), capability.InvitationOptions{
		Label:              "Campus Issuer",
		HandshakeProtocols: []string{capability.HandshakeDIDExchange},
	})
	require.NoError(t, err)
	assert.Equal(t, "oob-1", inv.RecordID)
	assert.Equal(t, "http://localhost:3001?oob=abc", inv.URL)
	assert.Equal(t, "Campus Issuer", got.Label)
	assert.Equal(t, []string{capability.HandshakeDIDExchange}, got.HandshakeProtocols)
}

func TestErrors(t *testing.T) {
	c := runtime(t, func(r *mux.Router) {
		r.HandleFunc("/connections/{id}/accept-request", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "connection not found"})
		})
		r.HandleFunc("/credentials/{id}/accept-offer", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "wallet locked"})
		})
		r.HandleFunc("/proofs/{id}/credentials-for-request", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "nothing matches"})
		})
	})
	ctx := context.Background()

	err := c.AcceptConnectionRequest(ctx, "c1")
	assert.True(t, errors.Is(err, capability.ErrNotFound), err)
	assert.Contains(t, err.Error(), "connection not found")

	err = c.AcceptCredentialOffer(ctx, "x")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "wallet locked", se.Message)
	assert.False(t, errors.Is(err, capability.ErrNotFound))

	_, err = c.SelectCredentialsForRequest(ctx, "p1")
	assert.True(t, errors.Is(err, capability.ErrNoCredentials), err)
}

func TestRegistryQueries(t *testing.T) {
	var query atomic.Value
	c := runtime(t, func(r *mux.Router) {
		r.HandleFunc("/dids", func(w http.ResponseWriter, r *http.Request) {
			query.Store(r.URL.RawQuery)
			writeJSON(w, http.StatusOK, []map[string]string{{"did": "did:cheqd:testnet:1"}})
		}).Methods(http.MethodGet)
		r.HandleFunc("/anoncreds/credential-definitions", func(w http.ResponseWriter, r *http.Request) {
			query.Store(r.URL.RawQuery)
			writeJSON(w, http.StatusOK, []capability.CredentialDefinitionRecord{{
				CredentialDefinitionID: "cd1",
				CredentialDefinition:   capability.CredentialDefinition{IssuerID: "did:1", SchemaID: "s1", Tag: "default"},
			}})
		}).Methods(http.MethodGet)
	})
	ctx := context.Background()

	dids, err := c.CreatedDIDs(ctx, "cheqd")
	require.NoError(t, err)
	assert.Equal(t, []string{"did:cheqd:testnet:1"}, dids)
	assert.Equal(t, "method=cheqd", query.Load())

	defs, err := c.CreatedCredentialDefinitions(ctx, "did:1", "s1")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "cd1", defs[0].CredentialDefinitionID)
	assert.Equal(t, "default", defs[0].Tag)
	assert.Equal(t, "issuerId=did%3A1&schemaId=s1", query.Load())
}

func TestWaitReady(t *testing.T) {
	var calls int32
	c := runtime(t, func(r *mux.Router) {
		r.HandleFunc("/agent", func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&calls, 1)
			if n == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, http.StatusOK, AgentInfo{Label: "issuer", IsInitialized: n > 2})
		})
	})

	require.NoError(t, c.WaitReady(context.Background(), 10*time.Second))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWaitReadyGivesUp(t *testing.T) {
	c := runtime(t, func(r *mux.Router) {
		r.HandleFunc("/agent", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	})
	assert.Error(t, c.WaitReady(context.Background(), 600*time.Millisecond))
}

func TestWebhooks(t *testing.T) {
	c := New("http://localhost:0")
	defer c.Close()
	r := mux.NewRouter()
	c.RegisterWebhooks(r)

	events, cancel := c.Subscribe()
	defer cancel()

	post := func(topic, body string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/"+topic, strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	code := post(TopicConnections, `{"record":{"id":"c1","state":"completed","outOfBandId":"oob-1"},"previousState":"response-sent"}`)
	assert.Equal(t, http.StatusOK, code)
	code = post(TopicProofs, `{"record":{"id":"p1","state":"presentation-received","connectionId":"c1"}}`)
	assert.Equal(t, http.StatusOK, code)

	ev := <-events
	assert.Equal(t, capability.ConnectionStateChanged, ev.Type)
	require.NotNil(t, ev.Connection)
	assert.Equal(t, capability.ConnectionCompleted, ev.Connection.State)
	assert.Equal(t, "oob-1", ev.Connection.OutOfBandID)
	assert.Equal(t, "response-sent", ev.PreviousState)

	ev = <-events
	assert.Equal(t, capability.ProofStateChanged, ev.Type)
	require.NotNil(t, ev.Proof)
	assert.Equal(t, capability.ProofPresentationReceived, ev.Proof.State)

	assert.Equal(t, http.StatusNoContent, post("basicmessages", `{"record":{"id":"m1"}}`))
	assert.Equal(t, http.StatusBadRequest, post(TopicCredentials, `not json`))
	assert.Equal(t, http.StatusBadRequest, post(TopicCredentials, `{}`))
}
