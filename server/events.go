package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

const (
	heartbeat = 25 * time.Second
	wsRate    = 100 * time.Millisecond
	wsBurst   = 10
	wsTimeout = 10 * time.Second
)

// allowed tells if the stream request comes from an allowed page. Origin is
// preferred, Referer is used when a browser doesn't send it. An entry is an
// origin like https://campus.example:5003, which must match scheme and host,
// or a bare host[:port] which must match the host.
func (v *Verifier) allowed(r *http.Request) bool {
	if len(v.EventOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Referer")
	}
	from, err := url.Parse(origin)
	if origin == "" || err != nil || from.Scheme == "" || from.Host == "" {
		return false
	}
	for _, o := range v.EventOrigins {
		if originMatches(o, from) {
			return true
		}
	}
	return false
}

func originMatches(entry string, from *url.URL) bool {
	if !strings.Contains(entry, "://") {
		return strings.EqualFold(entry, from.Host)
	}
	u, err := url.Parse(entry)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, from.Scheme) && strings.EqualFold(u.Host, from.Host)
}

func (v *Verifier) serveSSE(w http.ResponseWriter, r *http.Request) {
	if !v.allowed(r) {
		glog.Warningln("event stream denied for", r.RemoteAddr)
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Access denied"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming unsupported"})
		return
	}

	ch, cancel := v.Events.Subscribe()
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	glog.V(1).Infoln("event stream opened for", r.RemoteAddr)

	tick := time.NewTicker(heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			glog.V(1).Infoln("event stream closed for", r.RemoteAddr)
			return
		case <-tick.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ver, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ver)
			if err != nil {
				glog.Errorln("event marshal:", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				glog.V(3).Infoln("event stream write:", err)
				return
			}
		}
		flusher.Flush()
	}
}

func (v *Verifier) serveWS(w http.ResponseWriter, r *http.Request) {
	if !v.allowed(r) {
		glog.Warningln("event socket denied for", r.RemoteAddr)
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Access denied"})
		return
	}
	// the origin is checked above
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		glog.Warningln("event socket accept:", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "")

	ch, cancel := v.Events.Subscribe()
	defer cancel()

	// nothing is read from the client, CloseRead handles its close frames
	ctx := c.CloseRead(r.Context())
	l := rate.NewLimiter(rate.Every(wsRate), wsBurst)
	glog.V(1).Infoln("event socket opened for", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			glog.V(1).Infoln("event socket closed for", r.RemoteAddr)
			return
		case ver, ok := <-ch:
			if !ok {
				c.Close(websocket.StatusGoingAway, "verifier stopped")
				return
			}
			data, err := json.Marshal(ver)
			if err != nil {
				glog.Errorln("event marshal:", err)
				continue
			}
			if err := writeMessage(ctx, c, l, data); err != nil {
				glog.V(3).Infoln("event socket write:", err)
				return
			}
		}
	}
}

func writeMessage(ctx context.Context, c *websocket.Conn, l *rate.Limiter, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, wsTimeout)
	defer cancel()

	if err := l.Wait(ctx); err != nil {
		return err
	}
	return c.Write(ctx, websocket.MessageText, data)
}
