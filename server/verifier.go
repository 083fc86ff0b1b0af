package server

import (
	"net/http"

	"github.com/findy-network/campus-agent/agent/bus"
	"github.com/findy-network/campus-agent/agent/campus"
	"github.com/findy-network/campus-agent/agent/reactor"
	"github.com/findy-network/campus-agent/agent/shorturl"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
)

// Verifier serves the verifier role. Successful verifications are read from
// Events and streamed to the subscribers of /events and /events/ws.
type Verifier struct {
	Engine       *reactor.Engine[campus.RequestType]
	URLs         *shorturl.Shortener
	Events       *bus.Station[reactor.Verification]
	EventOrigins []string // allowed Origin or Referer hosts of the streams, empty allows all
	BaseURL      string   // of the short urls, see baseURL
}

// Routes adds the verifier routes to r.
func (v *Verifier) Routes(r *mux.Router) {
	r.HandleFunc("/status", v.status).Methods(http.MethodGet)
	r.HandleFunc("/proof-requests/age-verification",
		v.requestProof(campus.AgeVerification)).Methods(http.MethodPost)
	r.HandleFunc("/proof-requests/student-verification",
		v.requestProof(campus.StudentVerification)).Methods(http.MethodPost)
	r.HandleFunc(VerifyPrefix+"{id}", redirect(v.URLs,
		"This verification link is no longer valid")).Methods(http.MethodGet)
	r.HandleFunc("/events", v.serveSSE).Methods(http.MethodGet)
	r.HandleFunc("/events/ws", v.serveWS).Methods(http.MethodGet)
}

func (v *Verifier) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"initialized": true,
		"pending":     len(v.Engine.Pending()),
		"subscribers": v.Events.Len(),
	})
}

func (v *Verifier) requestProof(t campus.RequestType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ex, err := v.Engine.CreateExchange(r.Context(), t)
		if err != nil {
			glog.Errorf("%s proof request: %v", t, err)
			errorResponse(w, http.StatusInternalServerError, "Failed to create proof request", err)
			return
		}
		short, _ := v.URLs.Shorten(ex.InvitationURL, baseURL(v.BaseURL, r), VerifyPrefix)
		v.Engine.AttachURL(ex.ID, short)
		glog.V(1).Infof("%s proof request %s pending", t, ex.ID)
		writeJSON(w, http.StatusOK, map[string]string{"invitationUrl": short})
	}
}
