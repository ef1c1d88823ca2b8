// Package master is the caller-facing surface of the drug-master library: it owns the
// catalog snapshot and exposes dataset reads and derived views over it.
package master

import (
	"fmt"
	"time"

	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/errs"
	"github.com/shiro46mt/jp-medicine-master/interfaces"
	"github.com/shiro46mt/jp-medicine-master/loader"
	"github.com/shiro46mt/jp-medicine-master/logging"
	"github.com/shiro46mt/jp-medicine-master/metrics"
	"github.com/shiro46mt/jp-medicine-master/table"
	"github.com/shiro46mt/jp-medicine-master/views"
	"golang.org/x/sync/singleflight"
)

var _ interfaces.CatalogRefresher = (*Service)(nil)

// Service reads datasets and builds derived views against the current catalog snapshot.
// It is safe for concurrent use; every call works on the snapshot current at its start.
type Service struct {
	store    interfaces.CatalogStore
	catalogs interfaces.CatalogFetcher
	tables   interfaces.RawTableFetcher
	agList   interfaces.AGListFetcher

	initial singleflight.Group
}

// New wires a service. The store may already hold a catalog; when it does not, the first
// call that needs one fetches it.
func New(store interfaces.CatalogStore, catalogs interfaces.CatalogFetcher,
	tables interfaces.RawTableFetcher, agList interfaces.AGListFetcher) *Service {
	return &Service{
		store:    store,
		catalogs: catalogs,
		tables:   instrumented{inner: tables},
		agList:   agList,
	}
}

// RefreshCatalog fetches the catalog and swaps it in. Concurrent refreshes are collapsed:
// a call made while another refresh runs returns immediately.
func (s *Service) RefreshCatalog() error {
	if !s.store.BeginUpdate() {
		logging.Info("Catalog refresh already in progress, skipping...")
		return nil
	}
	defer s.store.EndUpdate()

	_, err := s.fetchCatalog()
	return err
}

// Catalog returns the current snapshot, fetching it first if the store is empty. Callers that
// arrive while that first fetch runs wait for it and share its result.
func (s *Service) Catalog() (*catalog.Catalog, error) {
	if c := s.store.Catalog(); c != nil {
		return c, nil
	}

	v, err, _ := s.initial.Do("catalog", func() (any, error) {
		if c := s.store.Catalog(); c != nil {
			return c, nil
		}
		// a scheduled refresh may hold the flag, the lazy load fetches anyway
		if s.store.BeginUpdate() {
			defer s.store.EndUpdate()
		}
		return s.fetchCatalog()
	})
	if err != nil {
		return nil, err
	}
	return v.(*catalog.Catalog), nil
}

func (s *Service) fetchCatalog() (*catalog.Catalog, error) {
	start := time.Now()
	c, err := s.catalogs.FetchCatalog()
	if err != nil {
		metrics.CatalogRefreshTotal.WithLabelValues("error").Inc()
		logging.Error("Failed to refresh data catalog", "error", err)
		return nil, errs.Wrap("refresh", "", "", fmt.Errorf("%w: %w", errs.ErrSourceUnavailable, err))
	}

	s.store.UpdateCatalog(c)
	metrics.CatalogRefreshTotal.WithLabelValues("ok").Inc()
	for _, kind := range catalog.Kinds() {
		files, _ := c.Files(kind)
		metrics.CatalogFiles.WithLabelValues(string(kind)).Set(float64(len(files)))
	}

	logging.Info("Data catalog refreshed", "updated", c.Updated, "files", c.Count(), "duration", time.Since(start).String())
	return c, nil
}

func (s *Service) loader() (*loader.Loader, error) {
	c, err := s.Catalog()
	if err != nil {
		return nil, err
	}
	return loader.New(c, s.tables), nil
}

// Resolve returns the file that kind/sel designates, without fetching it.
func (s *Service) Resolve(kind catalog.Kind, sel catalog.Selector) (catalog.FileEntry, error) {
	c, err := s.Catalog()
	if err != nil {
		return catalog.FileEntry{}, err
	}
	return catalog.Resolve(c, kind, sel)
}

// ReadTable loads one dataset.
func (s *Service) ReadTable(kind catalog.Kind, sel catalog.Selector, opts loader.Options) (*table.Table, error) {
	l, err := s.loader()
	if err != nil {
		return nil, err
	}
	return l.Load(kind, sel, opts)
}

// AvailableYears lists the fiscal years kind can be read for.
func (s *Service) AvailableYears(kind catalog.Kind) ([]int, error) {
	c, err := s.Catalog()
	if err != nil {
		return nil, err
	}
	return catalog.FiscalYears(c, kind)
}

// RevisionYears lists the price-revision years kind can be read for.
func (s *Service) RevisionYears(kind catalog.Kind) ([]int, error) {
	c, err := s.Catalog()
	if err != nil {
		return nil, err
	}
	return catalog.RevisionYears(c, kind)
}

// AuthorizedGenerics builds the authorized-generic list against the latest drug master.
func (s *Service) AuthorizedGenerics() (*views.Classified, error) {
	l, err := s.loader()
	if err != nil {
		return nil, err
	}
	v, err := views.AuthorizedGenerics(l, s.agList)
	if err != nil {
		return nil, err
	}
	for _, w := range v.Warnings {
		metrics.ListingUnmatchedTotal.WithLabelValues(w.Side).Inc()
	}
	return v, nil
}

// Biosimilars builds the biosimilar list for sel.
func (s *Service) Biosimilars(sel catalog.Selector) (*views.Classified, error) {
	l, err := s.loader()
	if err != nil {
		return nil, err
	}
	return views.Biosimilars(l, sel)
}

// BiosimilarYears lists the fiscal years Biosimilars accepts.
func (s *Service) BiosimilarYears() ([]int, error) {
	c, err := s.Catalog()
	if err != nil {
		return nil, err
	}
	return views.BiosimilarYears(c)
}

// FullYearView returns the drug master of fiscal year including rows deleted during the year.
func (s *Service) FullYearView(year int) (*table.Table, error) {
	l, err := s.loader()
	if err != nil {
		return nil, err
	}
	return views.FullYear(l, year)
}

// AugmentedCodeView returns the drug master for sel with YJ codes attached.
func (s *Service) AugmentedCodeView(sel catalog.Selector) (*table.Table, error) {
	l, err := s.loader()
	if err != nil {
		return nil, err
	}
	return views.AugmentedCode(l, sel)
}

// instrumented records fetch outcomes and latency per kind.
type instrumented struct {
	inner interfaces.RawTableFetcher
}

func (i instrumented) FetchRawTable(kind catalog.Kind, entry catalog.FileEntry) ([][]string, error) {
	start := time.Now()
	records, err := i.inner.FetchRawTable(kind, entry)
	metrics.TableLoadDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.TableLoadTotal.WithLabelValues(string(kind), result).Inc()
	return records, err
}
