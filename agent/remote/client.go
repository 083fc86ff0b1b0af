/*
Package remote implements capability.Agent over the admin REST API of an
external agent runtime. State changes come back as webhooks which the Client
serves on the role's router and turns into events.
*/
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/findy-network/campus-agent/agent/bus"
	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/findy-network/campus-agent/agent/utils"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// StatusError is a non-2xx response of the runtime.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
}

// Unwrap maps 404 to capability.ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return capability.ErrNotFound
	}
	return nil
}

// Client talks to one runtime.
type Client struct {
	base   string
	http   *http.Client
	events *bus.Station[capability.Event]
}

var _ capability.Agent = (*Client)(nil)

type Option func(c *Client)

// WithHTTPClient replaces the default client whose timeout is
// utils.Settings.Timeout().
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the runtime at baseURL, e.g. http://localhost:3000
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: utils.Settings.Timeout()},
		events: bus.New[capability.Event](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	code, data, err := c.roundTrip(ctx, method, path, in)
	if err != nil {
		return err
	}
	if code < 200 || code > 299 {
		return statusError(method, path, code, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("runtime %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in any) (code int, data []byte, err error) {
	defer err2.Handle(&err, "runtime %s %s", method, path)

	var body io.Reader
	if in != nil {
		body = bytes.NewReader(try.To1(json.Marshal(in)))
	}
	req := try.To1(http.NewRequestWithContext(ctx, method, c.base+path, body))
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp := try.To1(c.http.Do(req))
	defer resp.Body.Close()

	data = try.To1(io.ReadAll(resp.Body))
	glog.V(5).Infof("%s %s: %d", method, path, resp.StatusCode)
	return resp.StatusCode, data, nil
}

func statusError(method, path string, code int, body []byte) *StatusError {
	e := &StatusError{Method: method, Path: path, Code: code}
	var msg struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &msg) == nil && (msg.Message != "" || msg.Error != "") {
		e.Message = msg.Message
		if e.Message == "" {
			e.Message = msg.Error
		}
	} else {
		e.Message = http.StatusText(code)
	}
	return e
}

// AgentInfo is the runtime's self description.
type AgentInfo struct {
	Label         string   `json:"label"`
	Endpoints     []string `json:"endpoints"`
	IsInitialized bool     `json:"isInitialized"`
}

// Info returns the runtime's self description.
func (c *Client) Info(ctx context.Context) (info *AgentInfo, err error) {
	info = new(AgentInfo)
	if err = c.do(ctx, http.MethodGet, "/agent", nil, info); err != nil {
		return nil, err
	}
	return info, nil
}

// WaitReady polls the runtime until it reports itself initialized or
// maxWait has passed.
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = maxWait

	err := backoff.RetryNotify(
		func() error {
			info, err := c.Info(ctx)
			if err != nil {
				return err
			}
			if !info.IsInitialized {
				return fmt.Errorf("agent %s not initialized", info.Label)
			}
			glog.V(1).Infof("runtime %s ready at %s", info.Label, c.base)
			return nil
		},
		backoff.WithContext(bo, ctx),
		func(err error, d time.Duration) {
			glog.Warningf("runtime at %s not ready, retry in %s: %v", c.base, d, err)
		},
	)
	if err != nil {
		return fmt.Errorf("runtime at %s: %w", c.base, err)
	}
	return nil
}

// Subscribe implements capability.EventSource. Events come from webhooks.
func (c *Client) Subscribe() (<-chan capability.Event, func()) {
	return c.events.Subscribe()
}

// Close ends all subscriptions.
func (c *Client) Close() error {
	c.events.Close()
	return nil
}

// --- connections

func (c *Client) CreateInvitation(ctx context.Context, opts capability.InvitationOptions) (*capability.Invitation, error) {
	var res struct {
		InvitationURL   string `json:"invitationUrl"`
		OutOfBandRecord struct {
			ID string `json:"id"`
		} `json:"outOfBandRecord"`
	}
	if err := c.do(ctx, http.MethodPost, "/oob/create-invitation", opts, &res); err != nil {
		return nil, err
	}
	if res.InvitationURL == "" || res.OutOfBandRecord.ID == "" {
		return nil, fmt.Errorf("create invitation: incomplete response")
	}
	return &capability.Invitation{RecordID: res.OutOfBandRecord.ID, URL: res.InvitationURL}, nil
}

func (c *Client) ReceiveInvitationFromURL(ctx context.Context, invitationURL string) (*capability.ConnectionRecord, error) {
	in := map[string]string{"invitationUrl": invitationURL}
	var res struct {
		ConnectionRecord *capability.ConnectionRecord `json:"connectionRecord"`
	}
	if err := c.do(ctx, http.MethodPost, "/oob/receive-invitation-url", in, &res); err != nil {
		return nil, err
	}
	if res.ConnectionRecord == nil {
		return nil, fmt.Errorf("receive invitation: no connection record")
	}
	return res.ConnectionRecord, nil
}

func (c *Client) AcceptConnectionRequest(ctx context.Context, connectionID string) error {
	return c.do(ctx, http.MethodPost, "/connections/"+url.PathEscape(connectionID)+"/accept-request", nil, nil)
}

// --- credentials

func (c *Client) OfferCredential(ctx context.Context, opts capability.OfferOptions) (rec *capability.CredentialRecord, err error) {
	rec = new(capability.CredentialRecord)
	if err = c.do(ctx, http.MethodPost, "/credentials/offer-credential", opts, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) credentialAction(ctx context.Context, id, action string) error {
	return c.do(ctx, http.MethodPost, "/credentials/"+url.PathEscape(id)+"/"+action, nil, nil)
}

func (c *Client) AcceptCredentialRequest(ctx context.Context, credentialRecordID string) error {
	return c.credentialAction(ctx, credentialRecordID, "accept-request")
}

func (c *Client) AcceptCredentialOffer(ctx context.Context, credentialRecordID string) error {
	return c.credentialAction(ctx, credentialRecordID, "accept-offer")
}

func (c *Client) AcceptCredential(ctx context.Context, credentialRecordID string) error {
	return c.credentialAction(ctx, credentialRecordID, "accept-credential")
}

func (c *Client) Credentials(ctx context.Context) (list []capability.CredentialRecord, err error) {
	if err = c.do(ctx, http.MethodGet, "/credentials", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// --- proofs

func (c *Client) RequestProof(ctx context.Context, opts capability.ProofOptions) (rec *capability.ProofRecord, err error) {
	rec = new(capability.ProofRecord)
	if err = c.do(ctx, http.MethodPost, "/proofs/request-proof", opts, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// SelectCredentialsForRequest maps the runtime's 422 to
// capability.ErrNoCredentials.
func (c *Client) SelectCredentialsForRequest(ctx context.Context, proofRecordID string) (*capability.SelectedCredentials, error) {
	sel := new(capability.SelectedCredentials)
	err := c.do(ctx, http.MethodGet, "/proofs/"+url.PathEscape(proofRecordID)+"/credentials-for-request", nil, sel)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusUnprocessableEntity {
		return nil, fmt.Errorf("%s: %w", se.Message, capability.ErrNoCredentials)
	}
	if err != nil {
		return nil, err
	}
	return sel, nil
}

func (c *Client) AcceptProofRequest(ctx context.Context, proofRecordID string, sel *capability.SelectedCredentials) error {
	var in any
	if sel != nil {
		in = map[string]any{"selectedCredentials": sel}
	}
	return c.do(ctx, http.MethodPost, "/proofs/"+url.PathEscape(proofRecordID)+"/accept-request", in, nil)
}

func (c *Client) AcceptPresentation(ctx context.Context, proofRecordID string) (res *capability.PresentationResult, err error) {
	res = new(capability.PresentationResult)
	if err = c.do(ctx, http.MethodPost, "/proofs/"+url.PathEscape(proofRecordID)+"/accept-presentation", nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

// --- registry

func (c *Client) CreatedDIDs(ctx context.Context, method string) ([]string, error) {
	var recs []struct {
		DID string `json:"did"`
	}
	path := "/dids?method=" + url.QueryEscape(method)
	if err := c.do(ctx, http.MethodGet, path, nil, &recs); err != nil {
		return nil, err
	}
	dids := make([]string, 0, len(recs))
	for _, r := range recs {
		dids = append(dids, r.DID)
	}
	return dids, nil
}

func (c *Client) CreateDID(ctx context.Context, opts capability.DIDOptions) (res *capability.DIDResult, err error) {
	res = new(capability.DIDResult)
	if err = c.do(ctx, http.MethodPost, "/dids/create", opts, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) CreatedSchemas(ctx context.Context, issuerID string) (list []capability.SchemaRecord, err error) {
	path := "/anoncreds/schemas?issuerId=" + url.QueryEscape(issuerID)
	if err = c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) RegisterSchema(ctx context.Context, s capability.Schema) (res *capability.SchemaResult, err error) {
	res = new(capability.SchemaResult)
	if err = c.do(ctx, http.MethodPost, "/anoncreds/schemas", s, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) CreatedCredentialDefinitions(ctx context.Context, issuerID, schemaID string) (list []capability.CredentialDefinitionRecord, err error) {
	q := url.Values{}
	q.Set("issuerId", issuerID)
	if schemaID != "" {
		q.Set("schemaId", schemaID)
	}
	if err = c.do(ctx, http.MethodGet, "/anoncreds/credential-definitions?"+q.Encode(), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) RegisterCredentialDefinition(ctx context.Context, cd capability.CredentialDefinition) (res *capability.CredentialDefinitionResult, err error) {
	res = new(capability.CredentialDefinitionResult)
	if err = c.do(ctx, http.MethodPost, "/anoncreds/credential-definitions", cd, res); err != nil {
		return nil, err
	}
	return res, nil
}
