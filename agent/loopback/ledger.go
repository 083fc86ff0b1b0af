package loopback

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/findy-network/campus-agent/agent/storage"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

const (
	didBucket     = "dids"
	schemaBucket  = "schemas"
	credDefBucket = "creddefs"
)

// Ledger is the verifiable data registry of a loopback network. It also
// keeps which wallet created which DID, which a real runtime keeps in the
// wallet. With a database everything survives restarts.
type Ledger struct {
	lk       sync.RWMutex
	dids     map[string][]string // wallet label -> DIDs in creation order
	schemas  map[string]capability.SchemaRecord
	credDefs map[string]capability.CredentialDefinitionRecord

	db *storage.DB
}

// NewLedger creates an in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		dids:     make(map[string][]string),
		schemas:  make(map[string]capability.SchemaRecord),
		credDefs: make(map[string]capability.CredentialDefinitionRecord),
	}
}

// OpenLedger opens a ledger backed by a bolt file and loads its content.
func OpenLedger(filename string) (l *Ledger, err error) {
	defer err2.Handle(&err, "open ledger")

	db := try.To1(storage.Open(filename, didBucket, schemaBucket, credDefBucket))
	l = NewLedger()
	l.db = db

	try.To(db.ForEach(didBucket, func(label string, data []byte) error {
		var dids []string
		if err := json.Unmarshal(data, &dids); err != nil {
			return err
		}
		l.dids[label] = dids
		return nil
	}))
	try.To(db.ForEach(schemaBucket, func(id string, data []byte) error {
		var rec capability.SchemaRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		l.schemas[id] = rec
		return nil
	}))
	try.To(db.ForEach(credDefBucket, func(id string, data []byte) error {
		var rec capability.CredentialDefinitionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		l.credDefs[id] = rec
		return nil
	}))
	glog.V(1).Infof("ledger %s: %d schemas, %d cred defs", filename, len(l.schemas), len(l.credDefs))
	return l, nil
}

// Close closes the database if there is one.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) persist(bucket, key string, v any) error {
	if l.db == nil {
		return nil
	}
	return l.db.Put(bucket, key, v)
}

func (l *Ledger) addDID(label, did string) error {
	l.lk.Lock()
	defer l.lk.Unlock()

	l.dids[label] = append(l.dids[label], did)
	return l.persist(didBucket, label, l.dids[label])
}

func (l *Ledger) walletDIDs(label, method string) []string {
	l.lk.RLock()
	defer l.lk.RUnlock()

	prefix := "did:" + method + ":"
	var dids []string
	for _, d := range l.dids[label] {
		if method == "" || strings.HasPrefix(d, prefix) {
			dids = append(dids, d)
		}
	}
	return dids
}

func (l *Ledger) ownsDID(label, did string) bool {
	for _, d := range l.walletDIDs(label, "") {
		if d == did {
			return true
		}
	}
	return false
}

func (l *Ledger) addSchema(rec capability.SchemaRecord) error {
	l.lk.Lock()
	defer l.lk.Unlock()

	l.schemas[rec.SchemaID] = rec
	return l.persist(schemaBucket, rec.SchemaID, rec)
}

// Schema returns the schema by id.
func (l *Ledger) Schema(id string) (capability.SchemaRecord, bool) {
	l.lk.RLock()
	defer l.lk.RUnlock()

	rec, ok := l.schemas[id]
	return rec, ok
}

// Schemas returns the schemas of issuerID, all if it's empty, sorted by id.
func (l *Ledger) Schemas(issuerID string) []capability.SchemaRecord {
	l.lk.RLock()
	list := make([]capability.SchemaRecord, 0, len(l.schemas))
	for _, rec := range l.schemas {
		if issuerID == "" || rec.IssuerID == issuerID {
			list = append(list, rec)
		}
	}
	l.lk.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].SchemaID < list[j].SchemaID })
	return list
}

func (l *Ledger) addCredDef(rec capability.CredentialDefinitionRecord) error {
	l.lk.Lock()
	defer l.lk.Unlock()

	l.credDefs[rec.CredentialDefinitionID] = rec
	return l.persist(credDefBucket, rec.CredentialDefinitionID, rec)
}

// CredentialDefinition returns the definition by id.
func (l *Ledger) CredentialDefinition(id string) (capability.CredentialDefinitionRecord, bool) {
	l.lk.RLock()
	defer l.lk.RUnlock()

	rec, ok := l.credDefs[id]
	return rec, ok
}

// CredentialDefinitions filters by issuer and schema. Empty filters match
// all.
func (l *Ledger) CredentialDefinitions(issuerID, schemaID string) []capability.CredentialDefinitionRecord {
	l.lk.RLock()
	list := make([]capability.CredentialDefinitionRecord, 0, len(l.credDefs))
	for _, rec := range l.credDefs {
		if (issuerID == "" || rec.IssuerID == issuerID) &&
			(schemaID == "" || rec.SchemaID == schemaID) {
			list = append(list, rec)
		}
	}
	l.lk.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].CredentialDefinitionID < list[j].CredentialDefinitionID
	})
	return list
}
