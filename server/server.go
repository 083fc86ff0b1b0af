/*
Package server is the HTTP front of the campus agents. A Server carries the
routes of one role, and everything the routes don't match is forwarded to the
inbound transport of the agent runtime.
*/
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/findy-network/campus-agent/agent/utils"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const shutdownTimeout = 5 * time.Second

// Config of a Server.
type Config struct {
	Port           uint
	AgentURL       string   // inbound transport of the runtime, may be empty
	AllowedOrigins []string // CORS, empty allows all
}

// Server is the router of one role.
type Server struct {
	cfg    Config
	router *mux.Router
}

// New creates a Server with the version route and the runtime proxy. The
// role's routes are added with Mount.
func New(cfg Config) (*Server, error) {
	s := &Server{cfg: cfg, router: mux.NewRouter()}

	s.router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		if glog.V(5) {
			glog.Info("/version requested")
		}
		_, _ = w.Write([]byte(utils.Version))
	}).Methods(http.MethodGet)

	p, err := agentProxy(cfg.AgentURL)
	if err != nil {
		return nil, fmt.Errorf("agent url: %w", err)
	}
	s.router.NotFoundHandler = p
	s.router.MethodNotAllowedHandler = p
	return s, nil
}

// Mount lets each fn add routes to the router.
func (s *Server) Mount(fns ...func(r *mux.Router)) *Server {
	for _, fn := range fns {
		fn(s.router)
	}
	return s
}

// Handler returns the CORS wrapped router.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: len(s.cfg.AllowedOrigins) > 0,
	})
	return c.Handler(s.router)
}

// ListenAndServe serves until ctx is done and then shuts the server down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if glog.V(1) {
		glog.Info(utils.VersionInfo())
		glog.Infof("HTTP Server on port: %v", s.cfg.Port)
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	glog.V(1).Infoln("shutting down HTTP server on port", s.cfg.Port)
	if err := srv.Shutdown(shutCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// baseURL is the configured public address or the address the request came
// to.
func baseURL(configured string, r *http.Request) string {
	if configured != "" {
		return configured
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

type errorBody struct {
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Errorln("write response:", err)
	}
}

func errorResponse(w http.ResponseWriter, code int, what string, err error) {
	glog.V(2).Infof("returning %d: %s: %v", code, what, err)
	writeJSON(w, code, errorBody{Error: what, Message: err.Error()})
}

// agentProxy forwards to the runtime's inbound transport. Without one, or
// when it can't be reached, it answers 502.
func agentProxy(target string) (http.Handler, error) {
	if target == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			glog.V(3).Infoln("no agent url for", r.Method, r.URL.Path)
			writeJSON(w, http.StatusBadGateway, errorBody{
				Error:   "Agent unavailable",
				Message: "no agent transport configured",
			})
		}), nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("not an absolute url: %s", target)
	}
	p := httputil.NewSingleHostReverseProxy(u)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		glog.Warningf("agent proxy %s: %v", r.URL.Path, err)
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error:   "Agent unavailable",
			Message: err.Error(),
		})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if glog.V(5) {
			glog.Infoln("proxy to agent:", r.Method, r.URL.Path)
		}
		p.ServeHTTP(w, r)
	}), nil
}
