// Package devstore keeps a record of every input device the relay has ever
// seen, so `list-devices` can show devices that are currently asleep or out
// of range along with when they were last present.
package devstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger"
	"go.uber.org/zap"

	"github.com/hidrelay/hidrelay/internal/relaysvc"
)

const keyPrefix = "devices/"

// Record is one remembered input device.
type Record struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Uniq        string    `json:"uniq,omitempty"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

type Store struct {
	log *zap.Logger
	db  *badger.DB
	now func() time.Time
}

func New(db *badger.DB, log *zap.Logger, now func() time.Time) *Store {
	return &Store{log: log, db: db, now: now}
}

// Seen upserts a sighting. Devices are keyed by hardware address when they
// report one, falling back to the node path, so a device that moves between
// event nodes keeps a single record.
func (s *Store) Seen(info relaysvc.SourceInfo) error {
	now := s.now()
	return s.db.Update(func(txn *badger.Txn) error {
		key := recordKey(info)
		var rec Record
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			rec = Record{FirstSeenAt: now}
		case err != nil:
			return err
		default:
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal device record: %w", err)
			}
		}
		rec.Path = info.Path
		rec.Name = info.Name
		rec.Uniq = info.Uniq
		if rec.FirstSeenAt.IsZero() {
			rec.FirstSeenAt = now
		}
		rec.LastSeenAt = now
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

func recordKey(info relaysvc.SourceInfo) []byte {
	if info.Uniq != "" {
		return []byte(keyPrefix + "uniq/" + info.Uniq)
	}
	return []byte(keyPrefix + "path/" + info.Path)
}

// List returns every remembered device, most recently seen first.
func (s *Store) List() ([]Record, error) {
	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()
		prefix := []byte(keyPrefix)
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			var rec Record
			err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].LastSeenAt.After(records[j].LastSeenAt)
	})
	return records, nil
}
