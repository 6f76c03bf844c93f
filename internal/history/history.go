// Package history persists one record per terminal transfer attempt,
// sent or received, in a local BadgerDB.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Direction tells which side of the transfer this node was on.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Status is the terminal state of a transfer attempt.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is one terminal transfer outcome.
type Record struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	Path       string    `json:"path,omitempty"`
	Direction  Direction `json:"direction"`
	Peer       string    `json:"peer"`
	Bytes      int64     `json:"bytes"`
	Total      int64     `json:"total"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

const keyPrefix = "transfer:"

// keyTimeLayout keeps the fractional seconds fixed-width so keys sort
// lexicographically in chronological order.
const keyTimeLayout = "2006-01-02T15:04:05.000000000Z"

// key sorts records chronologically; the trailing ID keeps records
// with equal timestamps distinct.
func key(r Record) []byte {
	return []byte(keyPrefix + r.FinishedAt.UTC().Format(keyTimeLayout) + ":" + r.ID)
}

// Store wraps BadgerDB for transfer history.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the history database at the given path.
func Open(path string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %v", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores one transfer record.
func (s *Store) Put(rec Record) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(rec), val)
	})
}

// Get retrieves a record by its transfer ID.
func (s *Store) Get(id string) (Record, error) {
	records, err := s.List()
	if err != nil {
		return Record{}, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, fmt.Errorf("no transfer record with id %s", id)
}

// List returns all records, newest first.
func (s *Store) List() ([]Record, error) {
	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}
