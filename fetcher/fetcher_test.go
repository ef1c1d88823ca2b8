package fetcher

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/crossref"
	"golang.org/x/text/encoding/japanese"
)

const testCatalog = `{"update":"2024-06-01","data":[{"id":"y","files":["2024/20240417.csv"]},{"id":"hot9","files":["20240430.csv"]}]}`

const yCSV = "医薬品コード,基本漢字名称,新又は現金額\n620000001,\"ロキソニン錠60mg\",\"1,234\"\n620000002,バファリン\n"

func newTestServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	sjis, err := japanese.ShiftJIS.NewEncoder().String("医薬品コード,基本漢字名称\r\n620000001,アスピリン\r\n")
	if err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/data/data_catalog.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testCatalog))
	})
	mux.HandleFunc("/data/y/2024/20240417.csv", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(yCSV))
	})
	mux.HandleFunc("/data/hot9/20240430.csv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sjis))
	})
	mux.HandleFunc("/data/y/broken.csv", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRepositoryFetchCatalog(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)

	repo := NewRepository(srv.URL+"/data/data_catalog.json", srv.URL+"/data/{kind}/{file}", 5*time.Second, nil)
	c, err := repo.FetchCatalog()
	if err != nil {
		t.Fatalf("FetchCatalog error: %v", err)
	}
	if c.Updated != "2024-06-01" || c.Count() != 2 {
		t.Errorf("unexpected catalog %+v (count %d)", c, c.Count())
	}
}

func TestRepositoryFetchRawTable(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	cache := NewCache(t.TempDir())

	repo := NewRepository(srv.URL+"/data/data_catalog.json", srv.URL+"/data/{kind}/{file}", 5*time.Second, cache)
	entry := catalog.FileEntry{Path: "2024/20240417.csv", Date: "20240417", Dir: "2024"}

	for i := 0; i < 2; i++ {
		records, err := repo.FetchRawTable(catalog.KindY, entry)
		if err != nil {
			t.Fatalf("FetchRawTable error: %v", err)
		}
		want := [][]string{
			{"医薬品コード", "基本漢字名称", "新又は現金額"},
			{"620000001", "ロキソニン錠60mg", "1,234"},
			{"620000002", "バファリン"},
		}
		if !reflect.DeepEqual(records, want) {
			t.Errorf("records = %v, want %v", records, want)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected the second read to come from the cache, server hit %d times", hits.Load())
	}
}

func TestRepositoryDecodesShiftJIS(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)

	repo := NewRepository("", srv.URL+"/data/{kind}/{file}", 5*time.Second, nil)
	records, err := repo.FetchRawTable(catalog.KindHOT9, catalog.FileEntry{Path: "20240430.csv", Date: "20240430"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[1][1] != "アスピリン" {
		t.Errorf("Shift_JIS file decoded to %v", records)
	}
}

func TestRepositoryHTTPError(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)

	repo := NewRepository("", srv.URL+"/data/{kind}/{file}", 5*time.Second, nil)
	_, err := repo.FetchRawTable(catalog.KindY, catalog.FileEntry{Path: "broken.csv"})
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("expected a status error, got %v", err)
	}
}

func TestRepositoryBodyLimit(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)

	orig := maxBody
	t.Cleanup(func() { maxBody = orig })

	repo := NewRepository("", srv.URL+"/data/{kind}/{file}", 5*time.Second, nil)
	entry := catalog.FileEntry{Path: "2024/20240417.csv"}

	maxBody = int64(len(yCSV))
	if _, err := repo.FetchRawTable(catalog.KindY, entry); err != nil {
		t.Fatalf("a body of exactly the limit should load: %v", err)
	}

	maxBody = int64(len(yCSV)) - 1
	raw, err := repo.FetchRawTable(catalog.KindY, entry)
	if err == nil || !strings.Contains(err.Error(), "response larger than") {
		t.Errorf("expected an oversize error, got %v (rows %d)", err, len(raw))
	}
}

func TestCache(t *testing.T) {
	c := NewCache(t.TempDir())

	if _, ok := c.Get(catalog.KindY, "2024/20240417.csv"); ok {
		t.Error("empty cache should miss")
	}
	if err := c.Put(catalog.KindY, "2024/20240417.csv", []byte("a,b\n")); err != nil {
		t.Fatal(err)
	}
	if b, ok := c.Get(catalog.KindY, "2024/20240417.csv"); !ok || string(b) != "a,b\n" {
		t.Errorf("Get = %q, %v", b, ok)
	}
	if err := c.Put(catalog.KindY, "../../etc/passwd", []byte("x")); err == nil {
		t.Error("paths escaping the cache directory must be rejected")
	}

	var disabled *Cache
	if err := disabled.Put(catalog.KindY, "x.csv", nil); err != nil {
		t.Errorf("nil cache Put should be a no-op, got %v", err)
	}
	if NewCache("") != nil {
		t.Error("empty directory disables the cache")
	}
}

const agPage = `<html><body>
<div id="drugindex-header"><h1>AG一覧</h1><p>最終更新日：2024年6月3日</p></div>
<div id="article02"><ul>
<li>
  <div>ブロプレス錠２ｍｇ（武田テバ薬品）</div>
  <div><a href="/inc/all/drugdic/prd/21/2149040F1100_1_01.html">カンデサルタン錠２ｍｇ「あすか」</a></div>
  <div>あすか製薬</div>
</li>
<li>
  <div>タリオンＯＤ錠１０ｍｇ（田辺三菱製薬）</div>
  <div><a href="/inc/all/drugdic/prd/44/4490023F3031">ベポタスチンベシル酸塩ＯＤ錠１０ｍｇ「タナベ」</a></div>
  <div>ニプロＥＳファーマ</div>
</li>
<li><div>壊れた行</div></li>
</ul></div>
</body></html>`

func TestParseAGList(t *testing.T) {
	list, err := ParseAGList(strings.NewReader(agPage))
	if err != nil {
		t.Fatalf("ParseAGList error: %v", err)
	}

	if list.Updated != "20240603" {
		t.Errorf("Updated = %q", list.Updated)
	}

	want := []crossref.AGPair{
		{OriginalName: "ブロプレス錠2mg", OriginalMaker: "武田テバ薬品", AGCode: "2149040F1100", AGName: "カンデサルタン錠2mg「あすか」", AGMaker: "あすか製薬"},
		{OriginalName: "タリオンOD錠10mg", OriginalMaker: "田辺三菱製薬", AGCode: "4490023F3031", AGName: "ベポタスチンベシル酸塩OD錠10mg「タナベ」", AGMaker: "ニプロESファーマ"},
	}
	if !reflect.DeepEqual(list.Pairs, want) {
		t.Errorf("pairs =\n%+v\nwant\n%+v", list.Pairs, want)
	}
}

func TestParseAGListMissingSections(t *testing.T) {
	if _, err := ParseAGList(strings.NewReader(`<html><body><p>nothing</p></body></html>`)); err == nil {
		t.Error("expected an error for a page without header")
	}
	page := `<div id="drugindex-header"><p>2024年1月2日</p></div>`
	if _, err := ParseAGList(strings.NewReader(page)); err == nil {
		t.Error("expected an error for a page without the article list")
	}
}

func TestAGPageFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(agPage))
	}))
	defer srv.Close()

	list, err := NewAGPage(srv.URL, 5*time.Second).FetchAGList()
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Pairs) != 2 {
		t.Errorf("expected 2 pairs, got %d", len(list.Pairs))
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	if _, err := m.FetchCatalog(); err == nil {
		t.Error("expected an error without a catalog")
	}

	c, _ := catalog.New("u", map[catalog.Kind][]string{catalog.KindY: {"2024/20240417.csv"}})
	m.SetCatalog(c)
	m.SetTable(catalog.KindY, "2024/20240417.csv", [][]string{{"a"}, {"1"}})

	records, err := m.FetchRawTable(catalog.KindY, catalog.FileEntry{Path: "2024/20240417.csv"})
	if err != nil {
		t.Fatal(err)
	}
	records[1][0] = "mutated"
	again, _ := m.FetchRawTable(catalog.KindY, catalog.FileEntry{Path: "2024/20240417.csv"})
	if again[1][0] != "1" {
		t.Error("callers must not be able to mutate registered tables")
	}

	boom := errors.New("boom")
	m.Fail(boom)
	if _, err := m.FetchCatalog(); !errors.Is(err, boom) {
		t.Errorf("expected injected failure, got %v", err)
	}
	if m.CatalogCalls() != 2 || m.TableCalls() != 2 {
		t.Errorf("calls = %d/%d", m.CatalogCalls(), m.TableCalls())
	}
}
