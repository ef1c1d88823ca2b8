package health

import (
	"net/http"
	"testing"
	"time"

	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/config"
	"github.com/shiro46mt/jp-medicine-master/interfaces"
)

var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

type stubStore struct {
	catalog     *catalog.Catalog
	lastUpdated time.Time
	updating    bool
	start       time.Time
}

func (s *stubStore) Catalog() *catalog.Catalog        { return s.catalog }
func (s *stubStore) GetLastUpdated() time.Time        { return s.lastUpdated }
func (s *stubStore) IsUpdating() bool                 { return s.updating }
func (s *stubStore) GetServerStartTime() time.Time    { return s.start }
func (s *stubStore) UpdateCatalog(c *catalog.Catalog) { s.catalog = c }
func (s *stubStore) BeginUpdate() bool                { return true }
func (s *stubStore) EndUpdate()                       {}

var twiceDaily = []config.RefreshTime{{Hour: 6}, {Hour: 18}}

func newChecker(t *testing.T, s *stubStore, now time.Time) *HealthCheckerImpl {
	t.Helper()
	h := NewHealthChecker(s, twiceDaily)
	h.now = func() time.Time { return now }
	return h
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New("2024-06-01", map[catalog.Kind][]string{
		catalog.KindY:    {"2024/20240401.csv", "2024/20240601.csv"},
		catalog.KindHOT9: {"20240531.csv"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestHealthCheck(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.Local)

	tests := []struct {
		name       string
		store      *stubStore
		wantStatus string
		wantHTTP   int
	}{
		{"healthy", &stubStore{catalog: testCatalog(t), lastUpdated: now.Add(-time.Hour)}, "healthy", http.StatusOK},
		{"no catalog", &stubStore{}, "unhealthy", http.StatusServiceUnavailable},
		{"older than a day", &stubStore{catalog: testCatalog(t), lastUpdated: now.Add(-30 * time.Hour)}, "degraded", http.StatusServiceUnavailable},
		{"older than two days", &stubStore{catalog: testCatalog(t), lastUpdated: now.Add(-50 * time.Hour)}, "unhealthy", http.StatusServiceUnavailable},
		{"stuck updating", &stubStore{catalog: testCatalog(t), lastUpdated: now.Add(-7 * time.Hour), updating: true}, "degraded", http.StatusServiceUnavailable},
		{"updating recently", &stubStore{catalog: testCatalog(t), lastUpdated: now.Add(-time.Hour), updating: true}, "healthy", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, code := newChecker(t, tt.store, now).HealthCheck()
			if status != tt.wantStatus || code != tt.wantHTTP {
				t.Errorf("got %s/%d, want %s/%d", status, code, tt.wantStatus, tt.wantHTTP)
			}
		})
	}
}

func TestHealthCheckDetails(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.Local)
	s := &stubStore{catalog: testCatalog(t), lastUpdated: now.Add(-90 * time.Minute), start: now.Add(-time.Hour)}

	_, data, _ := newChecker(t, s, now).HealthCheck()

	if data["catalog_updated"] != "2024-06-01" {
		t.Errorf("catalog_updated = %v", data["catalog_updated"])
	}
	if data["data_age_hours"] != 1.5 {
		t.Errorf("data_age_hours = %v", data["data_age_hours"])
	}
	files := data["files"].(map[string]int)
	if files["y"] != 2 || files["hot9"] != 1 || files["mhlw_ge"] != 0 {
		t.Errorf("files = %v", files)
	}
	if data["next_update"] != time.Date(2024, 6, 3, 18, 0, 0, 0, time.Local).Format(time.RFC3339) {
		t.Errorf("next_update = %v", data["next_update"])
	}
	if data["uptime_seconds"] != int64(3600) {
		t.Errorf("uptime_seconds = %v", data["uptime_seconds"])
	}
}

func TestHealthCheckWithoutCatalogOmitsDetails(t *testing.T) {
	_, data, _ := newChecker(t, &stubStore{}, time.Now()).HealthCheck()

	if _, ok := data["files"]; ok {
		t.Error("files should be absent without a catalog")
	}
	if _, ok := data["next_update"]; !ok {
		t.Error("next_update is always reported")
	}
}

func TestCalculateNextUpdate(t *testing.T) {
	day := func(h, m int) time.Time { return time.Date(2024, 6, 3, h, m, 0, 0, time.Local) }

	tests := []struct {
		now, want time.Time
	}{
		{day(5, 0), day(6, 0)},
		{day(12, 0), day(18, 0)},
		{day(20, 0), day(6, 0).AddDate(0, 0, 1)},
	}
	for _, tt := range tests {
		h := newChecker(t, &stubStore{}, tt.now)
		if got := h.CalculateNextUpdate(); !got.Equal(tt.want) {
			t.Errorf("CalculateNextUpdate at %s = %s, want %s", tt.now, got, tt.want)
		}
	}
}

func BenchmarkHealthCheck(b *testing.B) {
	c, _ := catalog.New("2024-06-01", map[catalog.Kind][]string{catalog.KindY: {"2024/20240401.csv"}})
	h := NewHealthChecker(&stubStore{catalog: c, lastUpdated: time.Now()}, twiceDaily)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.HealthCheck()
	}
}
