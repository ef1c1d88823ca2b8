// Package data holds the current data-catalog snapshot with atomic replacement, so that
// readers never observe a partially refreshed catalog.
package data

import (
	"sync/atomic"
	"time"

	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/interfaces"
	"github.com/shiro46mt/jp-medicine-master/logging"
)

// Compile-time check to ensure CatalogStore implements interfaces.CatalogStore
var _ interfaces.CatalogStore = (*CatalogStore)(nil)

// CatalogStore holds the catalog behind an atomic pointer for zero-downtime refreshes
type CatalogStore struct {
	catalog         atomic.Pointer[catalog.Catalog]
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewCatalogStore creates an empty store
func NewCatalogStore() *CatalogStore {
	s := &CatalogStore{}
	s.lastUpdated.Store(time.Time{})
	s.serverStartTime.Store(time.Time{})
	return s
}

// Catalog returns the current snapshot, nil if none was stored yet
func (s *CatalogStore) Catalog() *catalog.Catalog {
	return s.catalog.Load()
}

// GetLastUpdated returns the time of the last successful refresh
func (s *CatalogStore) GetLastUpdated() time.Time {
	if v := s.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a refresh is currently in progress
func (s *CatalogStore) IsUpdating() bool {
	return s.updating.Load()
}

// SetServerStartTime sets the server start time
func (s *CatalogStore) SetServerStartTime(startTime time.Time) {
	s.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (s *CatalogStore) GetServerStartTime() time.Time {
	if v := s.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}
	return time.Time{}
}

// UpdateCatalog atomically replaces the snapshot. A nil catalog is ignored.
func (s *CatalogStore) UpdateCatalog(c *catalog.Catalog) {
	if c == nil {
		logging.Warn("Refusing to store a nil catalog")
		return
	}
	s.catalog.Store(c)
	s.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a refresh.
// Returns true if the refresh can proceed, false if another one is in progress
func (s *CatalogStore) BeginUpdate() bool {
	return s.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a refresh
func (s *CatalogStore) EndUpdate() {
	s.updating.Store(false)
}
