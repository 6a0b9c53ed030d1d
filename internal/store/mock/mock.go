// Package mock provides an in-memory implementation of the store contracts for testing.
package mock

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/snaprace/internal/bib"
	"github.com/kozaktomas/snaprace/internal/photo"
	"github.com/kozaktomas/snaprace/internal/store"
)

// Update records one UpdatePhoto call
type Update struct {
	ObjectKey string
	Patch     photo.Patch
}

// MockStore is a thread-safe in-memory store.Store
type MockStore struct {
	mu      sync.RWMutex
	photos  map[string]*photo.Record
	bibs    map[string][]string
	runners map[string]*photo.Runner
	updates []Update
	now     func() time.Time

	// RosterMissing makes the roster behave as if its table does not exist
	RosterMissing bool

	// Error injection
	GetPhotoError     error
	CreateError       error
	UpdateError       error
	PutBibIndexError  error
	QueryError        error
	TableExistsError  error
	ValidBibsError    error
	GetRunnerError    error
	PutRunnerError    error
	AddPhotoKeysError map[string]error // keyed by canonical bib
}

var _ store.Store = (*MockStore)(nil)

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		photos:            make(map[string]*photo.Record),
		bibs:              make(map[string][]string),
		runners:           make(map[string]*photo.Runner),
		now:               time.Now,
		AddPhotoKeysError: make(map[string]error),
	}
}

func photoKey(organizer, eventID, objectKey string) string {
	return photo.EventKey(organizer, eventID) + "|" + objectKey
}

func runnerKey(organizer, eventID, bibNumber string) string {
	return photo.EventKey(organizer, eventID) + "|" + bib.NormalizeBibNumber(bibNumber)
}

// AddPhoto seeds a photo record
func (m *MockStore) AddPhoto(organizer, eventID string, rec photo.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.EventKey = photo.EventKey(organizer, eventID)
	m.photos[photoKey(organizer, eventID, rec.ObjectKey)] = &rec
}

// Photo returns a copy of a stored photo record, or nil
func (m *MockStore) Photo(organizer, eventID, objectKey string) *photo.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.photos[photoKey(organizer, eventID, objectKey)]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

// Updates returns every UpdatePhoto call made so far
func (m *MockStore) Updates() []Update {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.updates)
}

func (m *MockStore) GetPhoto(ctx context.Context, organizer, eventID, objectKey string) (*photo.Record, error) {
	if m.GetPhotoError != nil {
		return nil, m.GetPhotoError
	}
	return m.Photo(organizer, eventID, objectKey), nil
}

func (m *MockStore) CreatePhoto(ctx context.Context, rec photo.Record) (bool, error) {
	if m.CreateError != nil {
		return false, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := rec.EventKey + "|" + rec.ObjectKey
	if _, ok := m.photos[k]; ok {
		return false, nil
	}
	m.photos[k] = &rec
	return true, nil
}

func (m *MockStore) UpdatePhoto(ctx context.Context, organizer, eventID, objectKey string, patch *photo.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if patch != nil {
		m.updates = append(m.updates, Update{ObjectKey: objectKey, Patch: *patch})
	}
	if m.UpdateError != nil {
		return m.UpdateError
	}
	k := photoKey(organizer, eventID, objectKey)
	rec, ok := m.photos[k]
	if !ok {
		rec = &photo.Record{EventKey: photo.EventKey(organizer, eventID), ObjectKey: objectKey}
		m.photos[k] = rec
	}
	patch.Apply(rec, m.now())
	return nil
}

func (m *MockStore) PutBibIndex(ctx context.Context, organizer, eventID, objectKey string, bibs []string) error {
	if m.PutBibIndexError != nil {
		return m.PutBibIndexError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bibs {
		k := photo.EventBibKey(organizer, eventID, b)
		if !slices.Contains(m.bibs[k], objectKey) {
			m.bibs[k] = append(m.bibs[k], objectKey)
		}
	}
	return nil
}

// BibIndexKeys returns the photo keys indexed under bib
func (m *MockStore) BibIndexKeys(organizer, eventID, bibNumber string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.bibs[photo.EventBibKey(organizer, eventID, bibNumber)])
}

func (m *MockStore) QueryBibIndex(ctx context.Context, organizer, eventID, bibNumber string) ([]string, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	return m.BibIndexKeys(organizer, eventID, bibNumber), nil
}

func (m *MockStore) TableExists(ctx context.Context) (bool, error) {
	if m.TableExistsError != nil {
		return false, m.TableExistsError
	}
	return !m.RosterMissing, nil
}

func (m *MockStore) ValidBibs(ctx context.Context, organizer, eventID string) ([]string, error) {
	if m.ValidBibsError != nil {
		return nil, m.ValidBibsError
	}
	if m.RosterMissing {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := photo.EventKey(organizer, eventID) + "|"
	var out []string
	for k, r := range m.runners {
		if strings.HasPrefix(k, prefix) {
			out = append(out, bib.NormalizeBibNumber(r.BibNumber))
		}
	}
	slices.Sort(out)
	return out, nil
}

func (m *MockStore) GetRunner(ctx context.Context, organizer, eventID, bibNumber string) (*photo.Runner, error) {
	if m.GetRunnerError != nil {
		return nil, m.GetRunnerError
	}
	if m.RosterMissing {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runners[runnerKey(organizer, eventID, bibNumber)]
	if !ok {
		return nil, nil
	}
	cp := *r
	cp.PhotoKeys = slices.Clone(r.PhotoKeys)
	return &cp, nil
}

func (m *MockStore) AddPhotoKeys(ctx context.Context, organizer, eventID, bibNumber string, keys ...string) error {
	if err := m.AddPhotoKeysError[bib.NormalizeBibNumber(bibNumber)]; err != nil {
		return err
	}
	if m.RosterMissing {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runners[runnerKey(organizer, eventID, bibNumber)]
	if !ok {
		return fmt.Errorf("%w: bib %s", store.ErrRunnerNotFound, bibNumber)
	}
	for _, k := range keys {
		if !slices.Contains(r.PhotoKeys, k) {
			r.PhotoKeys = append(r.PhotoKeys, k)
		}
	}
	slices.Sort(r.PhotoKeys)
	return nil
}

func (m *MockStore) PutRunner(ctx context.Context, organizer, eventID string, runner photo.Runner) error {
	if m.PutRunnerError != nil {
		return m.PutRunnerError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := runnerKey(organizer, eventID, runner.BibNumber)
	runner.BibNumber = bib.NormalizeBibNumber(runner.BibNumber)
	runner.EventID, runner.OrganizerID = eventID, organizer
	if existing, ok := m.runners[k]; ok {
		runner.PhotoKeys = existing.PhotoKeys
	}
	m.runners[k] = &runner
	return nil
}
