package storage

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/lainio/err2/assert"
)

type record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestDB_PutGet(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	filename := filepath.Join(t.TempDir(), "ledger.bolt")
	db, err := Open(filename, "schemas", "dids")
	assert.NoError(err)

	assert.NoError(db.Put("schemas", "s1", record{ID: "s1", Name: "Student Identity"}))
	assert.NoError(db.Put("schemas", "s2", record{ID: "s2", Name: "Other"}))

	var got record
	assert.NoError(db.Get("schemas", "s1", &got))
	assert.Equal(got.Name, "Student Identity")

	err = db.Get("schemas", "missing", &got)
	assert.Error(err)
	assert.That(errors.Is(err, ErrNotExists))

	var names []string
	assert.NoError(db.ForEach("schemas", func(_ string, data []byte) error {
		var r record
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		names = append(names, r.Name)
		return nil
	}))
	assert.Equal(len(names), 2)
	assert.NoError(db.Close())

	// reopen, data survives
	db, err = Open(filename, "schemas", "dids")
	assert.NoError(err)
	defer db.Close()
	assert.NoError(db.Get("schemas", "s2", &got))
	assert.Equal(got.ID, "s2")
}

func TestDB_UnknownBucket(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	db, err := Open(filepath.Join(t.TempDir(), "x.bolt"))
	assert.NoError(err)
	defer db.Close()

	assert.Error(db.Put("nope", "k", 1))
	assert.Error(db.ForEach("nope", func(string, []byte) error { return nil }))
}

