// Package registry keeps a persistent record of issued receipts
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry stores one entry per distinct receipt file
type Registry struct {
	filePath string
	data     map[string]*Entry
	mu       sync.RWMutex
	now      func() time.Time
}

// Entry describes an issued receipt
type Entry struct {
	ID            string    `json:"id"`
	IdentityKey   string    `json:"identity_key"`
	ReservationID string    `json:"reservation_id,omitempty"`
	Filename      string    `json:"filename"`
	Size          int       `json:"size"`
	SHA256        string    `json:"sha256"`
	Truncated     bool      `json:"truncated,omitempty"`
	IssuedAt      time.Time `json:"issued_at"`
	Downloads     int       `json:"downloads"`
}

// Receipt is the information recorded for a rendered file
type Receipt struct {
	ReservationID string
	Filename      string
	Data          []byte
	Truncated     bool
}

// New creates a Registry backed by filePath
func New(filePath string) (*Registry, error) {
	r := &Registry{
		filePath: filePath,
		data:     make(map[string]*Entry),
		now:      time.Now,
	}

	if err := r.load(); err != nil {
		// A missing file is created on first save
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load registry: %w", err)
		}
	}

	return r, nil
}

// Record stores a rendered receipt and returns its entry. Rendering the
// same bytes again for the same reservation returns the existing entry
// with its download count incremented.
func (r *Registry) Record(rc Receipt) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := sha256.Sum256(rc.Data)
	digest := hex.EncodeToString(sum[:])
	key := identityKey(rc.ReservationID, digest)

	entry, exists := r.data[key]
	if !exists {
		entry = &Entry{
			ID:            uuid.New().String(),
			IdentityKey:   key,
			ReservationID: rc.ReservationID,
			Filename:      rc.Filename,
			Size:          len(rc.Data),
			SHA256:        digest,
			Truncated:     rc.Truncated,
			IssuedAt:      r.now().UTC(),
		}
		r.data[key] = entry
	}
	entry.Downloads++

	if err := r.save(); err != nil {
		return *entry, fmt.Errorf("failed to save registry: %w", err)
	}
	return *entry, nil
}

// Get returns a copy of the entry with the given id
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.data {
		if entry.ID == id {
			return *entry, true
		}
	}
	return Entry{}, false
}

// ForReservation returns the receipts issued for a reservation, oldest first
func (r *Registry) ForReservation(reservationID string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, entry := range r.data {
		if entry.ReservationID == reservationID {
			out = append(out, *entry)
		}
	}
	sortEntries(out)
	return out
}

// All returns every entry, oldest first
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.data))
	for _, entry := range r.data {
		out = append(out, *entry)
	}
	sortEntries(out)
	return out
}

// Remove deletes the entry with the given id
func (r *Registry) Remove(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, entry := range r.data {
		if entry.ID == id {
			delete(r.data, key)
			if err := r.save(); err != nil {
				return true, fmt.Errorf("failed to save registry: %w", err)
			}
			return true, nil
		}
	}
	return false, nil
}

func (r *Registry) load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &r.data)
}

func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(r.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(r.filePath, data, 0644)
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IssuedAt.Equal(entries[j].IssuedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].IssuedAt.Before(entries[j].IssuedAt)
	})
}

// identityKey ties a receipt to its reservation and content
func identityKey(reservationID, digest string) string {
	if reservationID != "" {
		return fmt.Sprintf("reservation:%s:%s", reservationID, digest[:16])
	}
	return fmt.Sprintf("document:%s", digest[:16])
}
