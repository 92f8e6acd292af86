// Package consent records whether the device operator has agreed to location
// collection, and blocks location watchers until they have.
package consent

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/benmeehan/location-agent/pkg/file"
)

var (
	// ErrGrantorRequired is returned when a grant does not name who gave it.
	ErrGrantorRequired = errors.New("consent must name the person granting it")
	// ErrPurposeRequired is returned when a grant has no stated purpose.
	ErrPurposeRequired = errors.New("consent must state its purpose")
)

// Record is the persisted consent decision.
type Record struct {
	Granted   bool      `json:"granted"`
	GrantedBy string    `json:"granted_by,omitempty"`
	GrantedAt time.Time `json:"granted_at,omitempty"`
	RevokedAt time.Time `json:"revoked_at,omitempty"`
	Purpose   string    `json:"purpose,omitempty"`
}

// Checker reports the current consent decision.
type Checker interface {
	Status() Record
}

// Store keeps the consent record on disk.
type Store struct {
	path    string
	fileOps file.FileOperations
	now     func() time.Time

	mu     sync.RWMutex
	record Record
}

// NewStore creates a store backed by path. Call Load before use.
func NewStore(path string, fileOps file.FileOperations) *Store {
	return &Store{
		path:    path,
		fileOps: fileOps,
		now:     time.Now,
	}
}

// Load reads the record. A missing file means consent was never granted.
func (s *Store) Load() error {
	var record Record
	if err := s.fileOps.ReadJsonFile(s.path, &record); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read consent record: %w", err)
		}
		record = Record{}
	}

	s.mu.Lock()
	s.record = record
	s.mu.Unlock()
	return nil
}

// Grant records consent given by grantedBy for the stated purpose.
func (s *Store) Grant(grantedBy, purpose string) (Record, error) {
	grantedBy = strings.TrimSpace(grantedBy)
	purpose = strings.TrimSpace(purpose)
	if grantedBy == "" {
		return Record{}, ErrGrantorRequired
	}
	if purpose == "" {
		return Record{}, ErrPurposeRequired
	}

	record := Record{
		Granted:   true,
		GrantedBy: grantedBy,
		GrantedAt: s.now().UTC(),
		Purpose:   purpose,
	}
	return record, s.save(record)
}

// Revoke withdraws consent. The grant history is kept for auditing.
func (s *Store) Revoke() (Record, error) {
	s.mu.RLock()
	record := s.record
	s.mu.RUnlock()

	record.Granted = false
	record.RevokedAt = s.now().UTC()
	return record, s.save(record)
}

// Status returns the current record.
func (s *Store) Status() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record
}

func (s *Store) save(record Record) error {
	if err := s.fileOps.WriteJsonFile(s.path, record); err != nil {
		return fmt.Errorf("failed to write consent record: %w", err)
	}

	s.mu.Lock()
	s.record = record
	s.mu.Unlock()
	return nil
}
