/*
Package storage is a small bbolt backed key/value store with JSON values. The
loopback runtime keeps its ledger and wallet indexes in it so they survive
restarts.
*/
package storage

import (
	"encoding/json"
	"errors"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	bolt "go.etcd.io/bbolt"
)

// ErrNotExists is an error for key not exist in the bucket.
var ErrNotExists = errors.New("key not exists")

// DB is an open bolt database with a fixed set of buckets.
type DB struct {
	db *bolt.DB
}

// Open opens or creates filename and makes sure the buckets exist.
func Open(filename string, buckets ...string) (d *DB, err error) {
	defer err2.Handle(&err, "open storage %s", filename)

	db := try.To1(bolt.Open(filename, 0600, nil))

	err = db.Update(func(tx *bolt.Tx) (err error) {
		defer err2.Handle(&err, "create buckets")

		for _, b := range buckets {
			try.To1(tx.CreateBucketIfNotExists([]byte(b)))
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Put marshals v to JSON and stores it under key.
func (d *DB) Put(bucket, key string, v any) (err error) {
	defer err2.Handle(&err, "put %s/%s", bucket, key)

	data := try.To1(json.Marshal(v))
	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		return b.Put([]byte(key), data)
	})
}

// Get unmarshals the value of key to v. A missing key gives ErrNotExists.
func (d *DB) Get(bucket, key string, v any) (err error) {
	defer err2.Handle(&err, "get %s/%s", bucket, key)

	var data []byte
	try.To(d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		got := b.Get([]byte(key))
		if got == nil {
			return ErrNotExists
		}
		// bolt's slices are valid only inside the transaction
		data = append([]byte(nil), got...)
		return nil
	}))
	return json.Unmarshal(data, v)
}

// ForEach calls fn for every key in bucket in key order. fn must not keep data.
func (d *DB) ForEach(bucket string, fn func(key string, data []byte) error) error {
	return d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		return b.ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}
