package exchange

import (
	"sync"

	"github.com/golang/glog"
)

// Index maps connection ids to exchange ids for the time between a completed
// connection and the end of the exchange's protocol.
type Index struct {
	lk    sync.Mutex
	links map[string]string
}

func NewIndex() *Index {
	return &Index{links: make(map[string]string)}
}

// Link binds connectionID to exchangeID. An existing link is overwritten.
func (x *Index) Link(connectionID, exchangeID string) {
	x.lk.Lock()
	defer x.lk.Unlock()

	if old, exists := x.links[connectionID]; exists && old != exchangeID {
		glog.V(1).Infof("connection %s relinked: %s -> %s", connectionID, old, exchangeID)
	}
	x.links[connectionID] = exchangeID
}

// Unlink removes the link of connectionID and returns the exchange id it had.
func (x *Index) Unlink(connectionID string) (string, bool) {
	x.lk.Lock()
	defer x.lk.Unlock()

	id, ok := x.links[connectionID]
	delete(x.links, connectionID)
	return id, ok
}

// Lookup returns the exchange id of connectionID without removing it.
func (x *Index) Lookup(connectionID string) (string, bool) {
	x.lk.Lock()
	defer x.lk.Unlock()

	id, ok := x.links[connectionID]
	return id, ok
}

func (x *Index) Len() int {
	x.lk.Lock()
	defer x.lk.Unlock()
	return len(x.links)
}
