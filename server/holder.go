package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/findy-network/campus-agent/agent/reactor"
	"github.com/findy-network/campus-agent/agent/utils"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
)

// Holder serves the holder role.
type Holder struct {
	Engine *reactor.Engine[struct{}]
}

type credentialView struct {
	CredentialID           string            `json:"credentialId"`
	Attributes             map[string]string `json:"attributes"`
	SchemaID               string            `json:"schemaId,omitempty"`
	CredentialDefinitionID string            `json:"credentialDefinitionId,omitempty"`
	IssuedAt               time.Time         `json:"issuedAt"`
}

// Routes adds the holder routes to r.
func (h *Holder) Routes(r *mux.Router) {
	r.HandleFunc("/status", h.status).Methods(http.MethodGet)
	r.HandleFunc("/credentials", h.credentials).Methods(http.MethodGet)
	r.HandleFunc("/receive-invitation", h.receiveInvitation).Methods(http.MethodPost)
}

func (h *Holder) held(r *http.Request) ([]capability.CredentialRecord, error) {
	recs, err := h.Engine.Agent().Credentials(r.Context())
	if err != nil {
		return nil, err
	}
	held := recs[:0:0]
	for _, rec := range recs {
		if rec.Role == capability.RoleHolder {
			held = append(held, rec)
		}
	}
	return held, nil
}

func (h *Holder) status(w http.ResponseWriter, r *http.Request) {
	held, err := h.held(r)
	if err != nil {
		glog.Errorln("holder status:", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"initialized": true,
		"credentials": len(held),
	})
}

func (h *Holder) credentials(w http.ResponseWriter, r *http.Request) {
	held, err := h.held(r)
	if err != nil {
		glog.Errorln("stored credentials:", err)
		errorResponse(w, http.StatusInternalServerError, "Failed to get credentials", err)
		return
	}
	views := make([]credentialView, 0, len(held))
	for _, rec := range held {
		views = append(views, credentialView{
			CredentialID:           rec.ID,
			Attributes:             attributeMap(rec),
			SchemaID:               rec.SchemaID,
			CredentialDefinitionID: rec.CredentialDefinitionID,
			IssuedAt:               rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Holder) receiveInvitation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InvitationURL string `json:"invitationUrl"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.InvitationURL == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing required field: invitationUrl"})
		return
	}
	invitationURL, err := resolveShortURL(r.Context(), body.InvitationURL)
	if err != nil {
		glog.Errorln("resolve invitation:", err)
		errorResponse(w, http.StatusInternalServerError, "Failed to receive invitation", err)
		return
	}
	rec, err := h.Engine.Agent().ReceiveInvitationFromURL(r.Context(), invitationURL)
	if err != nil {
		glog.Errorln("receive invitation:", err)
		errorResponse(w, http.StatusInternalServerError, "Failed to receive invitation", err)
		return
	}
	glog.V(1).Infoln("invitation received, connection", rec.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Invitation received successfully",
	})
}

// resolveShortURL follows one redirect of a short url. Urls which carry the
// invitation in their query are returned as is.
func resolveShortURL(ctx context.Context, s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if q.Has("oob") || q.Has("c_i") || q.Has("d_m") {
		return s, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s, nil)
	if err != nil {
		return "", err
	}
	hc := &http.Client{
		Timeout: utils.Settings.Timeout(),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	loc := resp.Header.Get("Location")
	if resp.StatusCode/100 != 3 || loc == "" {
		return "", fmt.Errorf("invitation url %s: %s", s, resp.Status)
	}
	next, err := u.Parse(loc)
	if err != nil {
		return "", err
	}
	glog.V(3).Infoln("short url resolved:", s)
	return next.String(), nil
}
