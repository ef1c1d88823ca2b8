package data

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shiro46mt/jp-medicine-master/catalog"
)

func newCatalog(t testing.TB, updated string, n int) *catalog.Catalog {
	t.Helper()
	files := make([]string, n)
	for i := range files {
		files[i] = fmt.Sprintf("%d/%d0401.csv", 2000+i, 2000+i)
	}
	c, err := catalog.New(updated, map[catalog.Kind][]string{catalog.KindY: files})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewCatalogStore(t *testing.T) {
	s := NewCatalogStore()

	if s.Catalog() != nil {
		t.Error("new store should hold no catalog")
	}
	if s.IsUpdating() {
		t.Error("new store should not be updating")
	}
	if !s.GetLastUpdated().IsZero() {
		t.Error("new store should have zero lastUpdated time")
	}
}

func TestUpdateCatalog(t *testing.T) {
	s := NewCatalogStore()
	c := newCatalog(t, "2024-06-01", 3)

	before := time.Now()
	s.UpdateCatalog(c)

	if s.Catalog() != c {
		t.Error("stored snapshot should be returned as is")
	}
	if s.GetLastUpdated().Before(before) {
		t.Error("lastUpdated should be set on update")
	}

	s.UpdateCatalog(nil)
	if s.Catalog() != c {
		t.Error("a nil catalog must not replace the snapshot")
	}
}

func TestBeginEndUpdate(t *testing.T) {
	s := NewCatalogStore()

	if !s.BeginUpdate() {
		t.Fatal("first BeginUpdate should succeed")
	}
	if !s.IsUpdating() {
		t.Error("store should report updating")
	}
	if s.BeginUpdate() {
		t.Error("second BeginUpdate should fail while an update is running")
	}

	s.EndUpdate()
	if s.IsUpdating() {
		t.Error("EndUpdate should clear the flag")
	}
	if !s.BeginUpdate() {
		t.Error("BeginUpdate should succeed after EndUpdate")
	}
}

func TestServerStartTime(t *testing.T) {
	s := NewCatalogStore()
	if !s.GetServerStartTime().IsZero() {
		t.Error("start time should be zero initially")
	}
	now := time.Now()
	s.SetServerStartTime(now)
	if !s.GetServerStartTime().Equal(now) {
		t.Error("start time not stored")
	}
}

func TestConcurrentReadsDuringUpdate(t *testing.T) {
	s := NewCatalogStore()
	s.UpdateCatalog(newCatalog(t, "v1", 2))

	var wg sync.WaitGroup
	errs := make(chan string, 100)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c := s.Catalog()
				// each snapshot is internally consistent
				switch c.Updated {
				case "v1":
					if c.Count() != 2 {
						errs <- fmt.Sprintf("v1 snapshot has %d files", c.Count())
						return
					}
				case "v2":
					if c.Count() != 5 {
						errs <- fmt.Sprintf("v2 snapshot has %d files", c.Count())
						return
					}
				default:
					errs <- "unexpected snapshot " + c.Updated
					return
				}
			}
		}()
	}

	v2 := newCatalog(t, "v2", 5)
	for i := 0; i < 50; i++ {
		s.UpdateCatalog(v2)
	}

	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func BenchmarkCatalog(b *testing.B) {
	s := NewCatalogStore()
	s.UpdateCatalog(newCatalog(b, "bench", 10))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Catalog()
	}
}
