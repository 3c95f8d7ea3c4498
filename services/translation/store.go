package translation

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Record is one cached translation. Records are written once on the first
// successful translation and never mutated afterwards; translations of
// immutable source text do not expire.
type Record struct {
	SourceTextHash string    `json:"sourceTextHash"`
	SourceLang     string    `json:"sourceLang"`
	TargetLang     string    `json:"targetLang"`
	TranslatedText string    `json:"translatedText"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Store persists translation records keyed by (source text hash, target
// language). Implementations must be safe for concurrent use. EvictOlderThan
// bounds store growth; it is an operational knob, not a TTL.
type Store interface {
	Get(hash, targetLang string) (string, bool, error)
	Put(rec Record) error
	EvictOlderThan(age time.Duration) (int, error)
}

// HashText returns the cache hash for a source text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// MemoryStore is an in-memory Store. It backs tests and processes running
// without a database file.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func storeKey(hash, targetLang string) string {
	return hash + ":" + targetLang
}

func (s *MemoryStore) Get(hash, targetLang string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[storeKey(hash, targetLang)]
	if !ok {
		return "", false, nil
	}
	return rec.TranslatedText, true, nil
}

func (s *MemoryStore) Put(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeKey(rec.SourceTextHash, rec.TargetLang)
	// First write wins; records are immutable.
	if _, exists := s.records[key]; exists {
		return nil
	}
	s.records[key] = rec
	return nil
}

func (s *MemoryStore) EvictOlderThan(age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of cached translations.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
