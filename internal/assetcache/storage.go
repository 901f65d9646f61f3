package assetcache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/lance13c/shopassist/internal/database"
)

// CachedResponse is a stored copy of an asset response
type CachedResponse struct {
	URL      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// CacheStorage holds named caches of responses keyed by request URL
type CacheStorage interface {
	Open(ctx context.Context, name string) error
	Has(ctx context.Context, name string) (bool, error)
	Names(ctx context.Context) ([]string, error)
	// Delete removes the cache and its entries, reporting whether it existed
	Delete(ctx context.Context, name string) (bool, error)
	Put(ctx context.Context, name string, resp *CachedResponse) error
	// Match returns nil when the cache has no entry for url
	Match(ctx context.Context, name, url string) (*CachedResponse, error)
}

// SQLStorage keeps caches in the shopassist database
type SQLStorage struct {
	db *database.DB
}

// NewSQLStorage wraps db
func NewSQLStorage(db *database.DB) *SQLStorage {
	return &SQLStorage{db: db}
}

func (s *SQLStorage) Open(ctx context.Context, name string) error {
	return s.db.CreateCache(ctx, name)
}

func (s *SQLStorage) Has(ctx context.Context, name string) (bool, error) {
	return s.db.HasCache(ctx, name)
}

func (s *SQLStorage) Names(ctx context.Context) ([]string, error) {
	return s.db.CacheNames(ctx)
}

func (s *SQLStorage) Delete(ctx context.Context, name string) (bool, error) {
	return s.db.DeleteCache(ctx, name)
}

func (s *SQLStorage) Put(ctx context.Context, name string, resp *CachedResponse) error {
	header, err := json.Marshal(resp.Header)
	if err != nil {
		return fmt.Errorf("failed to encode headers: %w", err)
	}
	return s.db.PutCacheEntry(ctx, &database.CacheEntry{
		CacheName: name,
		URL:       resp.URL,
		Status:    resp.Status,
		Header:    string(header),
		Body:      resp.Body,
		StoredAt:  resp.StoredAt,
	})
}

func (s *SQLStorage) Match(ctx context.Context, name, url string) (*CachedResponse, error) {
	entry, err := s.db.MatchCacheEntry(ctx, name, url)
	if err != nil || entry == nil {
		return nil, err
	}

	resp := &CachedResponse{
		URL:      entry.URL,
		Status:   entry.Status,
		Header:   http.Header{},
		Body:     entry.Body,
		StoredAt: entry.StoredAt,
	}
	if entry.Header != "" {
		if err := json.Unmarshal([]byte(entry.Header), &resp.Header); err != nil {
			return nil, fmt.Errorf("failed to decode cached headers for %s: %w", url, err)
		}
	}
	return resp, nil
}

// MemoryStorage is an in-process CacheStorage
type MemoryStorage struct {
	mu      sync.RWMutex
	seq     int
	created map[string]int
	caches  map[string]map[string]*CachedResponse
}

// NewMemoryStorage creates an empty storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		created: make(map[string]int),
		caches:  make(map[string]map[string]*CachedResponse),
	}
}

func (m *MemoryStorage) Open(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.caches[name]; !ok {
		m.seq++
		m.created[name] = m.seq
		m.caches[name] = make(map[string]*CachedResponse)
	}
	return nil
}

func (m *MemoryStorage) Has(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.caches[name]
	return ok, nil
}

func (m *MemoryStorage) Names(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return m.created[names[i]] < m.created[names[j]]
	})
	return names, nil
}

func (m *MemoryStorage) Delete(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.caches[name]; !ok {
		return false, nil
	}
	delete(m.caches, name)
	delete(m.created, name)
	return true, nil
}

func (m *MemoryStorage) Put(_ context.Context, name string, resp *CachedResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cache, ok := m.caches[name]
	if !ok {
		return fmt.Errorf("cache %s does not exist", name)
	}
	stored := *resp
	stored.Header = resp.Header.Clone()
	stored.Body = append([]byte(nil), resp.Body...)
	cache[resp.URL] = &stored
	return nil
}

func (m *MemoryStorage) Match(_ context.Context, name, url string) (*CachedResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp, ok := m.caches[name][url]
	if !ok {
		return nil, nil
	}
	copied := *resp
	return &copied, nil
}
