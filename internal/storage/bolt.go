package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"monthcal/internal/model"
)

var eventsBucket = []byte("events")

// BoltStore keeps one key per event in the "events" bucket. Keys are the
// big-endian position of the event, so a cursor walk returns insertion order.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(eventsBucket)
		if err != nil {
			return fmt.Errorf("unable to create bucket %s: %w", eventsBucket, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Load(_ context.Context) (model.Snapshot, error) {
	snap := model.Snapshot{Events: []model.Event{}}
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(eventsBucket).ForEach(func(k, v []byte) error {
			var ev model.Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return fmt.Errorf("decode event at %d: %w", binary.BigEndian.Uint64(k), err)
			}
			snap.Events = append(snap.Events, ev)
			return nil
		})
	})
	return snap, err
}

// Save rewrites the bucket in a single transaction.
func (b *BoltStore) Save(_ context.Context, snap model.Snapshot) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(eventsBucket); err != nil {
			return err
		}
		bucket, err := tx.CreateBucket(eventsBucket)
		if err != nil {
			return err
		}
		for i, ev := range snap.Events {
			raw, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, uint64(i))
			if err := bucket.Put(key, raw); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltStore) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
