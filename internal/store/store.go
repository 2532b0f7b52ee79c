package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotBought     = errors.New("token has no recorded buy")
	ErrAlreadyBought = errors.New("token already has a recorded buy")
	ErrAlreadySold   = errors.New("token already has a recorded sell")
)

// TokenRecord is the persisted lifecycle entry for one token. Presence of
// BuyTxHash is the authoritative "already bought" marker; SellTxHash the
// "already sold" marker.
type TokenRecord struct {
	TokenAddress string    `json:"tokenAddress"`
	BoughtAt     time.Time `json:"boughtAt,omitzero"`
	BuyTxHash    string    `json:"buyTxHash,omitempty"`
	SoldAt       time.Time `json:"soldAt,omitzero"`
	SellTxHash   string    `json:"sellTxHash,omitempty"`
}

// Pending reports whether the record is bought but not yet sold.
func (r TokenRecord) Pending() bool {
	return r.BuyTxHash != "" && r.SellTxHash == ""
}

// Store is a durable mapping from lowercased token address to TokenRecord.
// It is loaded once at startup and rewritten in full after every mutation.
type Store struct {
	path    string
	mu      sync.Mutex
	records map[string]TokenRecord
}

// Load reads the store file at path. A missing or unparsable file yields an
// empty store, never an error: losing history is recoverable, refusing to
// start is not.
func Load(path string) *Store {
	s := &Store{
		path:    path,
		records: make(map[string]TokenRecord),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[store] cannot read %s, starting empty: %v", path, err)
		}
		return s
	}

	if err := json.Unmarshal(data, &s.records); err != nil {
		log.Printf("[store] cannot parse %s, starting empty: %v", path, err)
		s.records = make(map[string]TokenRecord)
	}
	return s
}

// Normalize lowercases a token address so that store and guard agree on
// identity regardless of checksum casing.
func Normalize(token string) string {
	return strings.ToLower(token)
}

// Get returns the record for token, if any.
func (s *Store) Get(token string) (TokenRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[Normalize(token)]
	return rec, ok
}

// HasBought reports whether a buy has ever been recorded for token.
func (s *Store) HasBought(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[Normalize(token)]
	return ok && rec.BuyTxHash != ""
}

// RecordBuy creates the record for token after a confirmed-successful buy and
// flushes the store. It refuses to overwrite an existing buy.
func (s *Store) RecordBuy(token, txHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Normalize(token)
	if rec, ok := s.records[key]; ok && rec.BuyTxHash != "" {
		return ErrAlreadyBought
	}

	s.records[key] = TokenRecord{
		TokenAddress: key,
		BoughtAt:     at,
		BuyTxHash:    txHash,
	}
	return s.flush()
}

// RecordSell adds the sell fields to an existing bought record, preserving
// the buy fields, and flushes the store.
func (s *Store) RecordSell(token, txHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Normalize(token)
	rec, ok := s.records[key]
	if !ok || rec.BuyTxHash == "" {
		return ErrNotBought
	}
	if rec.SellTxHash != "" {
		return ErrAlreadySold
	}

	rec.SoldAt = at
	rec.SellTxHash = txHash
	s.records[key] = rec
	return s.flush()
}

// PendingSells returns the addresses of all tokens bought but not yet sold,
// sorted for deterministic resume order. Malformed records (a sell without a
// buy) are skipped with a warning rather than guessed at.
func (s *Store) PendingSells() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []string
	for key, rec := range s.records {
		if rec.BuyTxHash == "" {
			if rec.SellTxHash != "" {
				log.Printf("[store] skipping malformed record %s: sell without buy", key)
			}
			continue
		}
		if rec.SellTxHash == "" {
			pending = append(pending, key)
		}
	}
	sort.Strings(pending)
	return pending
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a copy of all records, keyed by normalized address.
func (s *Store) Records() map[string]TokenRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]TokenRecord, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

// flush rewrites the whole store file. Caller must hold s.mu.
func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	return nil
}
