package remote

import (
	"encoding/json"
	"net/http"

	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
)

// Webhook topics of the runtime.
const (
	TopicConnections = "connections"
	TopicCredentials = "credentials"
	TopicProofs      = "proofs"
)

// WebhookPath is the route the Client serves on the role's router.
const WebhookPath = "/webhooks/{topic}"

type webhook struct {
	Record        json.RawMessage `json:"record"`
	PreviousState string          `json:"previousState"`
}

// RegisterWebhooks mounts the webhook receiver on r.
func (c *Client) RegisterWebhooks(r *mux.Router) {
	r.HandleFunc(WebhookPath, c.serveWebhook).Methods(http.MethodPost)
}

func (c *Client) serveWebhook(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]

	var hook webhook
	if err := json.NewDecoder(r.Body).Decode(&hook); err != nil || len(hook.Record) == 0 {
		glog.Warningf("webhook %s: bad body: %v", topic, err)
		http.Error(w, "bad webhook body", http.StatusBadRequest)
		return
	}
	ev, err := toEvent(topic, hook)
	if err != nil {
		glog.Warningf("webhook %s: %v", topic, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ev == nil {
		glog.V(3).Infoln("webhook topic ignored:", topic)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	n := c.events.Broadcast(*ev)
	glog.V(3).Infof("webhook %s to %d listeners", ev, n)
	w.WriteHeader(http.StatusOK)
}

// toEvent returns nil for topics which aren't protocol state changes.
func toEvent(topic string, hook webhook) (*capability.Event, error) {
	var ev capability.Event
	switch topic {
	case TopicConnections:
		var rec capability.ConnectionRecord
		if err := json.Unmarshal(hook.Record, &rec); err != nil {
			return nil, err
		}
		ev = capability.NewConnectionEvent(rec, capability.ConnectionState(hook.PreviousState))
	case TopicCredentials:
		var rec capability.CredentialRecord
		if err := json.Unmarshal(hook.Record, &rec); err != nil {
			return nil, err
		}
		ev = capability.NewCredentialEvent(rec, capability.CredentialState(hook.PreviousState))
	case TopicProofs:
		var rec capability.ProofRecord
		if err := json.Unmarshal(hook.Record, &rec); err != nil {
			return nil, err
		}
		ev = capability.NewProofEvent(rec, capability.ProofState(hook.PreviousState))
	default:
		return nil, nil
	}
	return &ev, nil
}
