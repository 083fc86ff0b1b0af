package explorer

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// HandlerConfig configures the explorer's HTTP API.
type HandlerConfig struct {
	RPCURL         string   // proxied under /api/rpc/
	RESTURL        string   // proxied under /api/rest/ when set
	AllowedOrigins []string // CORS, empty allows all
}

// NewHandler returns the explorer API over the indexer's snapshots.
func NewHandler(ix *Indexer, cfg HandlerConfig) (http.Handler, error) {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	view := func(pick func(s *Snapshot) any) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, pick(ix.Snapshot()))
		}
	}
	api.HandleFunc("/dashboard", view(func(s *Snapshot) any { return s })).Methods(http.MethodGet)
	api.HandleFunc("/stats", view(func(s *Snapshot) any { return s.Stats })).Methods(http.MethodGet)
	api.HandleFunc("/transactions", view(func(s *Snapshot) any { return nonNil(s.Transactions) })).Methods(http.MethodGet)
	api.HandleFunc("/dids", view(func(s *Snapshot) any { return nonNil(s.DIDs) })).Methods(http.MethodGet)
	api.HandleFunc("/resources", view(func(s *Snapshot) any { return nonNil(s.Resources) })).Methods(http.MethodGet)
	api.HandleFunc("/validators", view(func(s *Snapshot) any { return nonNil(s.Validators) })).Methods(http.MethodGet)
	api.HandleFunc("/health", view(func(s *Snapshot) any { return s.Health })).Methods(http.MethodGet)
	api.HandleFunc("/blocks/latest", func(w http.ResponseWriter, _ *http.Request) {
		s := ix.Snapshot()
		if s.LatestBlock == nil {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "not found", Message: "no block yet"})
			return
		}
		writeJSON(w, http.StatusOK, s.LatestBlock)
	}).Methods(http.MethodGet)

	rpcProxy, err := proxy(cfg.RPCURL, "/api/rpc", "RPC request failed")
	if err != nil {
		return nil, err
	}
	api.PathPrefix("/rpc/").Handler(rpcProxy)
	if cfg.RESTURL != "" {
		restProxy, err := proxy(cfg.RESTURL, "/api/rest", "REST request failed")
		if err != nil {
			return nil, err
		}
		api.PathPrefix("/rest/").Handler(restProxy)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowCredentials: len(cfg.AllowedOrigins) > 0,
	})
	return c.Handler(r), nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Errorln("write response:", err)
	}
}

// proxy forwards prefix/* to target/*. Failures answer 500 with a JSON body.
func proxy(target, prefix, failure string) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	p := httputil.NewSingleHostReverseProxy(u)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		glog.Warningf("proxy %s: %v", r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: failure, Details: err.Error()})
	}
	// the upstream's own CORS headers would duplicate ours
	p.ModifyResponse = func(resp *http.Response) error {
		for k := range resp.Header {
			if strings.HasPrefix(k, "Access-Control-") {
				resp.Header.Del(k)
			}
		}
		return nil
	}
	return http.StripPrefix(prefix, p), nil
}
