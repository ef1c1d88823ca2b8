// Package scheduler refreshes the data catalog at fixed times of day and watches how
// old the current snapshot gets.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/shiro46mt/jp-medicine-master/interfaces"
	"github.com/shiro46mt/jp-medicine-master/logging"
)

var _ interfaces.Scheduler = (*Scheduler)(nil)

// StaleAfter is how long the catalog may go without a successful refresh before a warning is logged.
const StaleAfter = 25 * time.Hour

// Scheduler runs catalog refreshes on a gocron daily schedule.
type Scheduler struct {
	store     interfaces.CatalogStore
	refresher interfaces.CatalogRefresher
	at        string
	scheduler *gocron.Scheduler

	monitorEvery time.Duration
	stop         chan struct{}
}

// NewScheduler creates a scheduler refreshing at the given gocron At() times ("06:00;18:00").
func NewScheduler(store interfaces.CatalogStore, refresher interfaces.CatalogRefresher, at string) *Scheduler {
	return &Scheduler{
		store:        store,
		refresher:    refresher,
		at:           at,
		scheduler:    gocron.NewScheduler(time.Local),
		monitorEvery: time.Hour,
		stop:         make(chan struct{}),
	}
}

// ErrInitialLoad is returned by Start when the schedule is running but the first refresh failed.
// The store stays empty until a later refresh or an on-demand load succeeds.
var ErrInitialLoad = errors.New("initial catalog load failed")

// Start schedules the daily refreshes and the staleness monitor, then performs the initial refresh.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(1).Days().At(s.at).Do(func() {
		if err := s.refresh(); err != nil {
			logging.Error("Scheduled catalog refresh failed", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule catalog refreshes", "at", s.at, "error", err)
		return fmt.Errorf("failed to schedule catalog refreshes: %w", err)
	}

	s.scheduler.StartAsync()
	go s.monitor()

	if err := s.refresh(); err != nil {
		logging.Error("Failed to perform initial catalog load", "error", err)
		return fmt.Errorf("%w: %w", ErrInitialLoad, err)
	}
	return nil
}

// Stop stops scheduled refreshes and the monitor. It does not wait for a running refresh.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}

func (s *Scheduler) refresh() error {
	logging.Info("Starting catalog refresh", "at", time.Now().Format(time.RFC3339))
	return s.refresher.RefreshCatalog()
}

func (s *Scheduler) monitor() {
	ticker := time.NewTicker(s.monitorEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.checkStaleness(time.Now())
		}
	}
}

// checkStaleness reports whether the catalog is older than StaleAfter, logging when it is.
func (s *Scheduler) checkStaleness(now time.Time) bool {
	last := s.store.GetLastUpdated()
	if age := now.Sub(last); age > StaleAfter {
		logging.Warn("Data catalog hasn't been refreshed in over 25 hours", "last_update", last, "age", age.Round(time.Minute).String())
		return true
	}
	return false
}
