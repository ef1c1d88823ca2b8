// Package interfaces defines the contracts between the drug-master core and its collaborators
// so that network access, storage and scheduling can be swapped out in tests.
package interfaces

import (
	"time"

	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/crossref"
)

// CatalogFetcher retrieves the current data catalog.
type CatalogFetcher interface {
	FetchCatalog() (*catalog.Catalog, error)
}

// RawTableFetcher retrieves the raw cells of one catalog file. The first row is the header.
// Cells are already decoded to UTF-8.
type RawTableFetcher interface {
	FetchRawTable(kind catalog.Kind, entry catalog.FileEntry) ([][]string, error)
}

// AGListFetcher retrieves the published authorized-generic listing.
type AGListFetcher interface {
	FetchAGList() (*crossref.AGList, error)
}

// CatalogStore holds the current catalog snapshot.
// Readers always observe a complete snapshot; a single writer replaces it atomically.
type CatalogStore interface {
	// Catalog returns the current snapshot, nil when none was ever stored.
	Catalog() *catalog.Catalog
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	UpdateCatalog(c *catalog.Catalog)
	BeginUpdate() bool
	EndUpdate()
}

// CatalogRefresher rebuilds the catalog snapshot from its source.
type CatalogRefresher interface {
	RefreshCatalog() error
}

// Scheduler defines the contract for job scheduling.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker reports service health for the /health endpoint.
type HealthChecker interface {
	// HealthCheck returns the status label, details and the HTTP status to answer with.
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled catalog refresh.
	CalculateNextUpdate() time.Time
}
