// Package health reports whether the service has a usable, recent data catalog.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/config"
	"github.com/shiro46mt/jp-medicine-master/interfaces"
)

// HealthCheckerImpl implements interfaces.HealthChecker over the catalog store.
type HealthCheckerImpl struct {
	store        interfaces.CatalogStore
	refreshTimes []config.RefreshTime
	now          func() time.Time
}

// NewHealthChecker creates a health checker. refreshTimes is the schedule the next update is
// computed from.
func NewHealthChecker(store interfaces.CatalogStore, refreshTimes []config.RefreshTime) *HealthCheckerImpl {
	return &HealthCheckerImpl{store: store, refreshTimes: refreshTimes, now: time.Now}
}

// HealthCheck grades the catalog: missing or older than 48h is unhealthy, older than 24h or
// stuck updating for 6h is degraded.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	c := h.store.Catalog()
	lastUpdate := h.store.GetLastUpdated()
	isUpdating := h.store.IsUpdating()
	dataAge := h.now().Sub(lastUpdate)

	switch {
	case c == nil || c.Count() == 0:
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	case dataAge > 48*time.Hour:
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	case dataAge > 24*time.Hour:
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	case isUpdating && dataAge > 6*time.Hour:
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	default:
		status, httpStatus = "healthy", http.StatusOK
	}

	data = map[string]any{
		"is_updating": isUpdating,
		"next_update": h.CalculateNextUpdate().Format(time.RFC3339),
	}
	if !h.store.GetServerStartTime().IsZero() {
		data["uptime_seconds"] = int64(h.now().Sub(h.store.GetServerStartTime()).Seconds())
	}
	if c == nil {
		return status, data, httpStatus
	}

	files := make(map[string]int)
	for _, kind := range catalog.Kinds() {
		entries, _ := c.Files(kind)
		files[string(kind)] = len(entries)
	}
	data["catalog_updated"] = c.Updated
	data["files"] = files
	data["last_update"] = lastUpdate.Format(time.RFC3339)
	data["data_age_hours"] = math.Round(dataAge.Hours()*10) / 10

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled catalog refresh.
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	return config.NextRefresh(h.now(), h.refreshTimes)
}
