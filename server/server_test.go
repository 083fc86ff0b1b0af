package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/findy-network/campus-agent/agent/bootstrap"
	"github.com/findy-network/campus-agent/agent/bus"
	"github.com/findy-network/campus-agent/agent/campus"
	"github.com/findy-network/campus-agent/agent/loopback"
	"github.com/findy-network/campus-agent/agent/proofreq"
	"github.com/findy-network/campus-agent/agent/reactor"
	"github.com/findy-network/campus-agent/agent/shorturl"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

func TestMain(m *testing.M) {
	_ = flag.Set("logtostderr", "true")
	_ = flag.Set("v", "3")
	os.Exit(m.Run())
}

const aliceJSON = `{"name":"Alice","studentId":"S1","university":"U1","isStudent":true,"birthDate":20000101}`

type campusServers struct {
	ids *bootstrap.Identifiers

	issuer   *httptest.Server
	holder   *httptest.Server
	verifier *httptest.Server

	issuerEngine *reactor.Engine[campus.Student]
	verifierURLs *shorturl.Shortener
	events       *bus.Station[reactor.Verification]
	offset       atomic.Int64 // of the verifier's short url clock
}

func newServer(t *testing.T, cfg Config, routes func(r *mux.Router)) *httptest.Server {
	s, err := New(cfg)
	require.NoError(t, err)
	s.Mount(routes)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newCampusServers(t *testing.T, origins ...string) *campusServers {
	ctx := context.Background()
	net := loopback.NewNetwork(nil)
	agent := func(label string) *loopback.Agent {
		a, err := net.NewAgent(label)
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.Close() })
		return a
	}
	issuerAgent := agent("issuer")
	holderAgent := agent("holder")
	verifierAgent := agent("verifier")

	cs := &campusServers{events: bus.New[reactor.Verification]()}
	t.Cleanup(cs.events.Close)

	var err error
	cs.ids, err = bootstrap.Run(ctx, issuerAgent, bootstrap.DefaultSetup("cheqd"))
	require.NoError(t, err)

	cs.issuerEngine = reactor.New(reactor.Config{Name: "issuer", Label: "Campus Issuer"},
		issuerAgent, reactor.IssuerRole(func() string { return cs.ids.CredentialDefinitionID }))
	holderEngine := reactor.New(reactor.Config{Name: "holder"}, holderAgent, reactor.HolderRole())
	verifierEngine := reactor.New(reactor.Config{Name: "verifier", Label: "Campus Verifier"},
		verifierAgent, reactor.VerifierRole(
			proofreq.Builder{CredDefID: cs.ids.CredentialDefinitionID},
			proofreq.Policy{},
			reactor.NotifierFunc(func(v reactor.Verification) { cs.events.Broadcast(v) }),
		))
	cs.issuerEngine.Start()
	holderEngine.Start()
	verifierEngine.Start()
	t.Cleanup(func() {
		cs.issuerEngine.Stop()
		holderEngine.Stop()
		verifierEngine.Stop()
	})

	cs.verifierURLs = shorturl.New(shorturl.DefaultTTL, time.Minute)
	cs.verifierURLs.SetClock(func() time.Time {
		return time.Now().Add(time.Duration(cs.offset.Load()))
	})

	is := &Issuer{
		Engine: cs.issuerEngine,
		URLs:   shorturl.New(shorturl.DefaultTTL, time.Minute),
		IDs:    func() *bootstrap.Identifiers { return cs.ids },
	}
	cs.issuer = newServer(t, Config{}, is.Routes)
	cs.holder = newServer(t, Config{}, (&Holder{Engine: holderEngine}).Routes)
	cs.verifier = newServer(t, Config{}, (&Verifier{
		Engine:       verifierEngine,
		URLs:         cs.verifierURLs,
		Events:       cs.events,
		EventOrigins: origins,
	}).Routes)
	return cs
}

func postJSON(t *testing.T, url, body string, out any) int {
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func getJSON(t *testing.T, url string, out any) int {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

var noRedirect = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func TestIssueMissingFields(t *testing.T) {
	cs := newCampusServers(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"only name", `{"name":"Alice"}`,
			"Missing required fields: studentId, university, isStudent, birthDate"},
		{"empty", `{}`,
			"Missing required fields: name, studentId, university, isStudent, birthDate"},
		{"no birth date", `{"name":"A","studentId":"S","university":"U","isStudent":false}`,
			"Missing required fields: birthDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorBody
			code := postJSON(t, cs.issuer.URL+"/credentials/issue", tt.body, &body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, tt.want, body.Error)
		})
	}
	assert.Empty(t, cs.issuerEngine.Pending())
}

func TestIssueBadBirthDate(t *testing.T) {
	cs := newCampusServers(t)

	var body errorBody
	code := postJSON(t, cs.issuer.URL+"/credentials/issue",
		`{"name":"A","studentId":"S","university":"U","isStudent":true,"birthDate":20001341}`, &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body.Message, "YYYYMMDD")
}

func TestTwoIssuesDontCollide(t *testing.T) {
	cs := newCampusServers(t)

	var first, second issueResponse
	require.Equal(t, http.StatusOK, postJSON(t, cs.issuer.URL+"/credentials/issue", aliceJSON, &first))
	require.Equal(t, http.StatusOK, postJSON(t, cs.issuer.URL+"/credentials/issue",
		`{"name":"Bob","studentId":"S2","university":"U2","isStudent":false,"birthDate":19990505}`, &second))

	assert.NotEqual(t, first.RecordID, second.RecordID)
	assert.NotEqual(t, first.InvitationURL, second.InvitationURL)
	assert.True(t, strings.HasPrefix(first.InvitationURL, cs.issuer.URL+InvitePrefix))
	assert.Equal(t, "Alice", first.StudentInfo.Name)
	assert.Equal(t, "Bob", second.StudentInfo.Name)

	var pending []pendingView
	require.Equal(t, http.StatusOK, getJSON(t, cs.issuer.URL+"/credentials/pending", &pending))
	require.Len(t, pending, 2)
	byID := map[string]pendingView{pending[0].ID: pending[0], pending[1].ID: pending[1]}
	p, ok := byID[first.RecordID]
	require.True(t, ok)
	assert.Equal(t, "pending", p.Status)
	assert.Equal(t, "S1", p.StudentID)
	assert.Equal(t, 20000101, p.BirthDate)
	require.NotNil(t, p.InvitationURL)
	assert.Equal(t, first.InvitationURL, *p.InvitationURL)
	assert.True(t, p.ExpiresAt.Equal(p.CreatedAt.Add(reactor.DefaultTTL)))
}

func TestVerifyShortURLExpiry(t *testing.T) {
	cs := newCampusServers(t)

	var created map[string]string
	require.Equal(t, http.StatusOK,
		postJSON(t, cs.verifier.URL+"/proof-requests/age-verification", "", &created))
	short := created["invitationUrl"]
	require.True(t, strings.HasPrefix(short, cs.verifier.URL+VerifyPrefix))
	id := strings.TrimPrefix(short, cs.verifier.URL+VerifyPrefix)
	original, ok := cs.verifierURLs.Resolve(id)
	require.True(t, ok)

	resp, err := noRedirect.Get(short)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, original, resp.Header.Get("Location"))
	assert.Contains(t, original, "oob=")

	cs.offset.Store(int64(shorturl.DefaultTTL + time.Second))
	resp, err = noRedirect.Get(short)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Short URL not found or expired", body.Error)
	assert.Equal(t, "This verification link is no longer valid", body.Message)
}

func TestUnknownInvite(t *testing.T) {
	cs := newCampusServers(t)

	resp, err := noRedirect.Get(cs.issuer.URL + InvitePrefix + "nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReceiveInvitationMissing(t *testing.T) {
	cs := newCampusServers(t)

	var body errorBody
	code := postJSON(t, cs.holder.URL+"/receive-invitation", `{}`, &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required field: invitationUrl", body.Error)
}

// issue runs a whole issuance over HTTP with the short url.
func (cs *campusServers) issue(t *testing.T) {
	var res issueResponse
	require.Equal(t, http.StatusOK, postJSON(t, cs.issuer.URL+"/credentials/issue", aliceJSON, &res))

	var ok map[string]any
	require.Equal(t, http.StatusOK, postJSON(t, cs.holder.URL+"/receive-invitation",
		`{"invitationUrl":"`+res.InvitationURL+`"}`, &ok))
	assert.Equal(t, true, ok["success"])

	require.Eventually(t, func() bool {
		var creds []credentialView
		return getJSON(t, cs.holder.URL+"/credentials", &creds) == http.StatusOK && len(creds) == 1
	}, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		var issued []issuedView
		return getJSON(t, cs.issuer.URL+"/credentials/issued", &issued) == http.StatusOK && len(issued) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func (cs *campusServers) requestAge(t *testing.T) {
	var created map[string]string
	require.Equal(t, http.StatusOK,
		postJSON(t, cs.verifier.URL+"/proof-requests/age-verification", "", &created))
	require.Equal(t, http.StatusOK, postJSON(t, cs.holder.URL+"/receive-invitation",
		`{"invitationUrl":"`+created["invitationUrl"]+`"}`, nil))
}

func TestIssueAndVerifyOverHTTP(t *testing.T) {
	cs := newCampusServers(t)
	cs.issue(t)

	var creds []credentialView
	getJSON(t, cs.holder.URL+"/credentials", &creds)
	assert.Equal(t, "S1", creds[0].Attributes[campus.AttrStudentID])
	assert.Equal(t, cs.ids.CredentialDefinitionID, creds[0].CredentialDefinitionID)

	var status map[string]any
	getJSON(t, cs.holder.URL+"/status", &status)
	assert.Equal(t, float64(1), status["credentials"])

	var issuerStatus map[string]issuerStatus
	getJSON(t, cs.issuer.URL+"/status", &issuerStatus)
	assert.True(t, issuerStatus["agent"].Initialized)
	assert.Equal(t, cs.ids.SchemaID, issuerStatus["agent"].SchemaID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cs.verifier.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	cs.requestAge(t)

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var v reactor.Verification
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &v))
		assert.Equal(t, campus.AgeVerification, v.Type)
		assert.True(t, v.Predicates[proofreq.AgePredicate])
		return
	}
	t.Fatal("no verification event:", sc.Err())
}

func TestEventsOverWebsocket(t *testing.T) {
	cs := newCampusServers(t)
	cs.issue(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(cs.verifier.URL, "http") + "/events/ws"
	c, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return cs.events.Len() == 1 },
		5*time.Second, 10*time.Millisecond)
	cs.requestAge(t)

	typ, data, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)
	var v reactor.Verification
	require.NoError(t, json.Unmarshal(data, &v))
	assert.Equal(t, campus.AgeVerification, v.Type)
}

func TestEventsOriginDenied(t *testing.T) {
	cs := newCampusServers(t, "localhost:5003")

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"no origin", "", "", http.StatusForbidden},
		{"other origin", "Origin", "http://evil.example", http.StatusForbidden},
		{"look-alike host", "Origin", "https://localhost:5003.evil.example", http.StatusForbidden},
		{"entry in referer path", "Referer", "http://evil.example/localhost:5003", http.StatusForbidden},
		{"referer", "Referer", "http://localhost:5003/verify", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, cs.verifier.URL+"/events", nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
			if tt.want == http.StatusForbidden {
				var body errorBody
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, "Access denied", body.Error)
			}
		})
	}
}

func TestAgentProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("agent " + r.URL.Path))
	}))
	defer upstream.Close()
	gone := httptest.NewServer(http.NotFoundHandler())
	gone.Close()

	tests := []struct {
		name     string
		agentURL string
		want     int
		body     string
	}{
		{"forwarded", upstream.URL, http.StatusOK, "agent /didcomm"},
		{"no agent url", "", http.StatusBadGateway, "Agent unavailable"},
		{"unreachable", gone.URL, http.StatusBadGateway, "Agent unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newServer(t, Config{AgentURL: tt.agentURL}, func(*mux.Router) {})
			resp, err := http.Post(ts.URL+"/didcomm", "application/didcomm-envelope-enc",
				bytes.NewReader([]byte("{}")))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
			var buf bytes.Buffer
			_, _ = buf.ReadFrom(resp.Body)
			assert.Contains(t, buf.String(), tt.body)
		})
	}
}

func TestBadAgentURL(t *testing.T) {
	_, err := New(Config{AgentURL: "localhost-only"})
	assert.Error(t, err)
}

func TestAllowedOrigins(t *testing.T) {
	v := &Verifier{EventOrigins: []string{"localhost:5003", "https://campus.example"}}

	tests := []struct {
		origin  string
		referer string
		ok      bool
	}{
		{"http://localhost:5003", "", true},
		{"https://LOCALHOST:5003", "", true},
		{"http://localhost:5004", "", false},
		{"http://localhost:5003.evil.example", "", false},
		{"https://campus.example", "", true},
		{"http://campus.example", "", false},
		{"https://campus.example:8443", "", false},
		{"https://evil.example/?https://campus.example", "", false},
		{"", "https://campus.example/verifier/page", true},
		{"", "campus.example", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin+tt.referer, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/events", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if tt.referer != "" {
				r.Header.Set("Referer", tt.referer)
			}
			assert.Equal(t, tt.ok, v.allowed(r))
		})
	}

	assert.True(t, (&Verifier{}).allowed(httptest.NewRequest(http.MethodGet, "/events", nil)))
}
