package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"skmf.evalgo.org/db/bolt"
)

// AuditBucket is the bbolt bucket audit entries are written to.
const AuditBucket = "audit"

// fixed width so that keys sort chronologically
const auditKeyTime = "20060102T150405.000000000Z"

// AuditEntry records one security relevant action.
type AuditEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	Username   string    `json:"username,omitempty"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
}

// AuditStore keeps audit entries in a local bbolt file.
type AuditStore struct {
	db *bolt.DB
}

// OpenAuditStore opens or creates the audit file at path.
func OpenAuditStore(path string) (*AuditStore, error) {
	db, err := bolt.Open(path, AuditBucket)
	if err != nil {
		return nil, err
	}
	return &AuditStore{db: db}, nil
}

func auditKey(ts time.Time, id string) string {
	return ts.UTC().Format(auditKeyTime) + "/" + id
}

// Log stores entry, filling in the id and timestamp when they are missing.
func (s *AuditStore) Log(ctx context.Context, entry *AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := s.db.PutJSON(AuditBucket, auditKey(entry.Timestamp, entry.ID), entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// List returns the entries logged in [from, to), oldest first. A zero to
// means no upper bound.
func (s *AuditStore) List(ctx context.Context, from, to time.Time) ([]*AuditEntry, error) {
	lower := ""
	if !from.IsZero() {
		lower = from.UTC().Format(auditKeyTime)
	}
	upper := ""
	if !to.IsZero() {
		upper = to.UTC().Format(auditKeyTime)
	}

	var entries []*AuditEntry
	err := s.db.Range(AuditBucket, lower, upper, func(key string, value []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry := &AuditEntry{}
		if err := json.Unmarshal(value, entry); err != nil {
			return fmt.Errorf("failed to decode audit entry %s: %w", key, err)
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close closes the underlying file.
func (s *AuditStore) Close() error {
	return s.db.Close()
}
