package fetcher

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/crossref"
	"github.com/shiro46mt/jp-medicine-master/interfaces"
)

var (
	_ interfaces.CatalogFetcher  = (*Memory)(nil)
	_ interfaces.RawTableFetcher = (*Memory)(nil)
	_ interfaces.AGListFetcher   = (*Memory)(nil)
)

// Memory serves a fixed catalog, tables and AG listing from memory. It backs offline
// fixtures and tests.
type Memory struct {
	mu      sync.RWMutex
	catalog *catalog.Catalog
	tables  map[string][][]string
	agList  *crossref.AGList
	err     error

	catalogCalls atomic.Int64
	tableCalls   atomic.Int64
}

// NewMemory creates an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string][][]string)}
}

func memoryKey(kind catalog.Kind, path string) string { return string(kind) + "/" + path }

// SetCatalog replaces the served catalog.
func (m *Memory) SetCatalog(c *catalog.Catalog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = c
}

// SetTable registers the raw records served for kind/path.
func (m *Memory) SetTable(kind catalog.Kind, path string, records [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[memoryKey(kind, path)] = records
}

// SetAGList replaces the served AG listing.
func (m *Memory) SetAGList(l *crossref.AGList) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agList = l
}

// Fail makes every fetch return err until Fail(nil) is called.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// CatalogCalls returns how many times FetchCatalog was called.
func (m *Memory) CatalogCalls() int64 { return m.catalogCalls.Load() }

// TableCalls returns how many times FetchRawTable was called.
func (m *Memory) TableCalls() int64 { return m.tableCalls.Load() }

func (m *Memory) FetchCatalog() (*catalog.Catalog, error) {
	m.catalogCalls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.catalog == nil {
		return nil, fmt.Errorf("no catalog registered")
	}
	return m.catalog, nil
}

func (m *Memory) FetchRawTable(kind catalog.Kind, entry catalog.FileEntry) ([][]string, error) {
	m.tableCalls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	records, ok := m.tables[memoryKey(kind, entry.Path)]
	if !ok {
		return nil, fmt.Errorf("no table registered for %s/%s", kind, entry.Path)
	}
	out := make([][]string, len(records))
	for i, rec := range records {
		out[i] = append([]string(nil), rec...)
	}
	return out, nil
}

func (m *Memory) FetchAGList() (*crossref.AGList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.agList == nil {
		return nil, fmt.Errorf("no AG list registered")
	}
	return m.agList, nil
}
