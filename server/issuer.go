package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/findy-network/campus-agent/agent/bootstrap"
	"github.com/findy-network/campus-agent/agent/campus"
	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/findy-network/campus-agent/agent/reactor"
	"github.com/findy-network/campus-agent/agent/shorturl"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Short url prefixes of the roles.
const (
	InvitePrefix = "/invite/"
	VerifyPrefix = "/verify/"
)

// Issuer serves the issuer role.
type Issuer struct {
	Engine *reactor.Engine[campus.Student]
	URLs   *shorturl.Shortener
	IDs    func() *bootstrap.Identifiers // nil until bootstrap is done

	BaseURL string // of the short urls, see baseURL
}

type issuerStatus struct {
	SchemaID               string `json:"schemaId,omitempty"`
	CredentialDefinitionID string `json:"credentialDefinitionId,omitempty"`
	Initialized            bool   `json:"initialized"`
}

type issueResponse struct {
	InvitationURL string         `json:"invitationUrl"`
	RecordID      string         `json:"recordId"`
	StudentInfo   campus.Student `json:"studentInfo"`
}

type pendingView struct {
	ID            string    `json:"id"`
	StudentName   string    `json:"studentName"`
	StudentID     string    `json:"studentId"`
	University    string    `json:"university"`
	BirthDate     int       `json:"birthDate"`
	IsStudent     bool      `json:"isStudent"`
	CreatedAt     time.Time `json:"createdAt"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expiresAt"`
	InvitationURL *string   `json:"invitationUrl"`
}

type issuedView struct {
	CredentialID           string            `json:"credentialId"`
	StudentName            string            `json:"studentName"`
	StudentID              string            `json:"studentId"`
	University             string            `json:"university"`
	IssuedAt               time.Time         `json:"issuedAt"`
	Attributes             map[string]string `json:"attributes"`
	SchemaID               string            `json:"schemaId,omitempty"`
	CredentialDefinitionID string            `json:"credentialDefinitionId,omitempty"`
}

// Routes adds the issuer routes to r.
func (is *Issuer) Routes(r *mux.Router) {
	r.HandleFunc("/status", is.status).Methods(http.MethodGet)
	r.HandleFunc("/credentials/issue", is.issue).Methods(http.MethodPost)
	r.HandleFunc("/credentials/issued", is.issued).Methods(http.MethodGet)
	r.HandleFunc("/credentials/pending", is.pending).Methods(http.MethodGet)
	r.HandleFunc(InvitePrefix+"{id}", redirect(is.URLs,
		"This invitation link is no longer valid")).Methods(http.MethodGet)
}

func (is *Issuer) status(w http.ResponseWriter, _ *http.Request) {
	var st issuerStatus
	if is.IDs != nil {
		if ids := is.IDs(); ids != nil {
			st = issuerStatus{
				SchemaID:               ids.SchemaID,
				CredentialDefinitionID: ids.CredentialDefinitionID,
				Initialized:            true,
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"agent": st})
}

func (is *Issuer) issue(w http.ResponseWriter, r *http.Request) {
	var req campus.StudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body", Message: err.Error()})
		return
	}
	student, err := req.Student()
	var missing campus.ErrMissingFields
	switch {
	case errors.As(err, &missing):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: missing.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid student data", Message: err.Error()})
		return
	}

	res, err := is.create(r.Context(), baseURL(is.BaseURL, r), student)
	if err != nil {
		glog.Errorf("issue for %s: %v", student.StudentID, err)
		errorResponse(w, http.StatusInternalServerError, "Failed to issue credential", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (is *Issuer) create(ctx context.Context, base string, s campus.Student) (res *issueResponse, err error) {
	defer err2.Handle(&err, "create exchange")

	ex := try.To1(is.Engine.CreateExchange(ctx, s))
	short, _ := is.URLs.Shorten(ex.InvitationURL, base, InvitePrefix)
	is.Engine.AttachURL(ex.ID, short)
	glog.V(1).Infof("credential offer %s pending for %s", ex.ID, s.StudentID)

	return &issueResponse{
		InvitationURL: short,
		RecordID:      ex.ID,
		StudentInfo:   s,
	}, nil
}

func (is *Issuer) pending(w http.ResponseWriter, _ *http.Request) {
	ttl := is.Engine.TTL()
	entries := is.Engine.Pending()
	views := make([]pendingView, 0, len(entries))
	for _, e := range entries {
		v := pendingView{
			ID:          e.ID,
			StudentName: e.Context.Name,
			StudentID:   e.Context.StudentID,
			University:  e.Context.University,
			BirthDate:   e.Context.BirthDate,
			IsStudent:   e.Context.IsStudent,
			CreatedAt:   e.CreatedAt,
			Status:      "pending",
			ExpiresAt:   e.ExpiresAt(ttl),
		}
		if e.DerivedURL != "" {
			u := e.DerivedURL
			v.InvitationURL = &u
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (is *Issuer) issued(w http.ResponseWriter, r *http.Request) {
	recs, err := is.Engine.Agent().Credentials(r.Context())
	if err != nil {
		glog.Errorln("issued credentials:", err)
		errorResponse(w, http.StatusInternalServerError, "Failed to get issued credentials", err)
		return
	}
	views := make([]issuedView, 0, len(recs))
	for _, rec := range recs {
		if rec.Role != capability.RoleIssuer || rec.State != capability.CredentialDone {
			continue
		}
		attrs := attributeMap(rec)
		views = append(views, issuedView{
			CredentialID:           rec.ID,
			StudentName:            orUnknown(attrs[campus.AttrName]),
			StudentID:              orUnknown(attrs[campus.AttrStudentID]),
			University:             orUnknown(attrs[campus.AttrUniversity]),
			IssuedAt:               rec.CreatedAt,
			Attributes:             attrs,
			SchemaID:               rec.SchemaID,
			CredentialDefinitionID: rec.CredentialDefinitionID,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func attributeMap(rec capability.CredentialRecord) map[string]string {
	m := make(map[string]string, len(rec.Attributes))
	for _, a := range rec.Attributes {
		m[a.Name] = a.Value
	}
	return m
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// redirect resolves the short url id of the path. Unknown and expired ids
// answer 404 with gone as the message.
func redirect(urls *shorturl.Shortener, gone string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		original, ok := urls.Resolve(id)
		if !ok {
			glog.V(3).Infoln("short url not found:", id)
			writeJSON(w, http.StatusNotFound, errorBody{
				Error:   "Short URL not found or expired",
				Message: gone,
			})
			return
		}
		http.Redirect(w, r, original, http.StatusFound)
	}
}
