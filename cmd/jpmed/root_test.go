package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/config"
	"github.com/shiro46mt/jp-medicine-master/crossref"
	"github.com/shiro46mt/jp-medicine-master/data"
	"github.com/shiro46mt/jp-medicine-master/errs"
	"github.com/shiro46mt/jp-medicine-master/fetcher"
	"github.com/shiro46mt/jp-medicine-master/master"
	"github.com/shiro46mt/jp-medicine-master/validation"
)

var yHeader = []string{"変更区分", "医薬品コード", "薬価基準収載医薬品コード", "基本漢字名称", "新又は現金額"}

func fixture(t *testing.T) *fetcher.Memory {
	t.Helper()

	c, err := catalog.New("2024-06-01", map[catalog.Kind][]string{
		catalog.KindY:       {"2016/20160401.csv", "2016/20170301.csv", "2017/20170401.csv"},
		catalog.KindGeneric: {"2016/tp20170301-01.csv"},
		catalog.KindHOT9:    {"20180331.csv"},
	})
	if err != nil {
		t.Fatal(err)
	}

	m := fetcher.NewMemory()
	m.SetCatalog(c)
	m.SetTable(catalog.KindY, "2016/20160401.csv", [][]string{
		yHeader,
		{"9", "610000009", "1190000F1000", "廃止薬", "10"},
		{"0", "610000001", "1149019F1560", "ロキソニン錠６０ｍｇ", "10"},
	})
	m.SetTable(catalog.KindY, "2016/20170301.csv", [][]string{
		yHeader,
		{"0", "610000001", "1149019F1560", "ロキソニン錠６０ｍｇ", "10"},
		{"0", "620000003", "2492415A1037", "ランタス注ソロスター", "5"},
		{"0", "630000004", "2492415A3030", "インスリングラルギンＢＳ注", "1"},
	})
	m.SetTable(catalog.KindY, "2017/20170401.csv", [][]string{
		yHeader,
		{"0", "610000001", "1149019F1560", "ロキソニン錠６０ｍｇ", "1,010"},
		{"0", "620000005", "1149019F1999", "ロキソプロフェン錠６０ｍｇ「Ａ」", "5"},
	})
	m.SetTable(catalog.KindGeneric, "2016/tp20170301-01.csv", [][]string{
		{"薬価基準収載医薬品コード", "成分名", "各先発医薬品の後発医薬品の有無に関する情報"},
		{"2492415A3030", "インスリン　グラルギン（遺伝子組換え）［インスリン　グラルギン後続１］", "★"},
		{"2492415A1037", "インスリン　グラルギン（遺伝子組換え）", "☆"},
	})
	m.SetTable(catalog.KindHOT9, "20180331.csv", [][]string{
		{"レセプト電算処理システムコード（１）", "個別医薬品コード", "更新区分"},
		{"610000001", "1149019F1560", "0"},
	})
	m.SetAGList(&crossref.AGList{Updated: "20240603", Pairs: []crossref.AGPair{
		{OriginalName: "ロキソニン錠60mg", AGCode: "1149019F1999", AGName: "ロキソプロフェン錠60mg「A」"},
	}})
	return m
}

// run executes the CLI against the in-memory fixture and returns stdout and stderr.
func run(t *testing.T, m *fetcher.Memory, args ...string) (string, string, error) {
	t.Helper()

	t.Setenv("ENV", "test")
	t.Setenv("LOG_DIR", t.TempDir())

	orig := newService
	newService = func(*config.Config) *master.Service {
		return master.New(data.NewCatalogStore(), m, m, m)
	}
	t.Cleanup(func() { newService = orig })

	var stdout, stderr bytes.Buffer
	cmd := getRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestReadCSV(t *testing.T) {
	stdout, stderr, err := run(t, fixture(t), "read", "y", "--date", "20170331")
	if err != nil {
		t.Fatalf("read failed: %v\n%s", err, stderr)
	}

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 4 || lines[0] != strings.Join(yHeader, ",") {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "y: 3 rows from 2016/20170301.csv") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestReadJSON(t *testing.T) {
	stdout, _, err := run(t, fixture(t), "read", "y", "--format", "json", "--file-info")
	if err != nil {
		t.Fatal(err)
	}

	var body struct {
		Source  string   `json:"source"`
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	if err := json.Unmarshal([]byte(stdout), &body); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if body.Source != "2017/20170401.csv" || len(body.Rows) != 2 {
		t.Errorf("table = %+v", body)
	}
	if body.Columns[len(body.Columns)-1] != "file" {
		t.Errorf("columns = %v", body.Columns)
	}
}

func TestReadToDirectory(t *testing.T) {
	dir := t.TempDir()

	stdout, stderr, err := run(t, fixture(t), "read", "y", "--year", "2016", "-o", dir)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "" {
		t.Errorf("nothing should be printed when saving, got %q", stdout)
	}

	want := filepath.Join(dir, "y_20170301.csv")
	if !strings.Contains(stderr, "Saved "+want) {
		t.Errorf("stderr = %q", stderr)
	}
	if _, err := os.Stat(want); err != nil {
		t.Error(err)
	}

	if _, _, err := run(t, fixture(t), "read", "y", "--format", "json", "-o", dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "y_20170401.json")); err != nil {
		t.Error(err)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown dataset", []string{"read", "unknown"}, errs.ErrUnknownDatasetKind},
		{"bad date", []string{"read", "y", "--date", "20160231"}, errs.ErrInvalidSelector},
		{"no file", []string{"read", "y", "--date", "20150101"}, errs.ErrNoMatchingFile},
		{"bad format", []string{"read", "y", "--format", "xml"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, fixture(t), tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestYearsAndResolve(t *testing.T) {
	m := fixture(t)

	// the date wins over the fiscal year
	stdout, _, err := run(t, m, "resolve", "y", "--date", "20170331", "--year", "2017")
	if err != nil || stdout != "2016/20170301.csv\n" {
		t.Errorf("resolve with two selectors = %q, %v", stdout, err)
	}

	stdout, _, err = run(t, m, "years", "y")
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "fiscal years:   2016 2017\nrevision years: 2016 2017\n" {
		t.Errorf("years = %q", stdout)
	}

	stdout, _, err = run(t, m, "resolve", "y", "--kaitei", "2016")
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "2016/20170301.csv\n" {
		t.Errorf("resolve = %q", stdout)
	}
	if m.TableCalls() != 0 {
		t.Error("resolve must not download tables")
	}
}

func TestCheck(t *testing.T) {
	stdout, _, err := run(t, fixture(t), "check", "y", "--year", "2016", "--strict")
	if err != nil {
		t.Fatal(err)
	}

	var report validation.QualityReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if report.Rows != 3 || !report.OK() {
		t.Errorf("report = %+v", report)
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()

	_, stderr, err := run(t, fixture(t), "export", "y", "hot9", "y", "-o", dir, "-j", "2")
	if err != nil {
		t.Fatalf("export failed: %v\n%s", err, stderr)
	}
	if got := strings.Count(stderr, "Saved "); got != 2 {
		t.Errorf("expected 2 saved files, stderr = %q", stderr)
	}
	for _, name := range []string{"y_20170401.csv", "hot9_20180331.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Error(err)
		}
	}

	m := fixture(t)
	m.Fail(errors.New("connection refused"))
	if _, _, err := run(t, m, "export", "y", "-o", dir); !errors.Is(err, errs.ErrSourceUnavailable) {
		t.Errorf("expected a source error, got %v", err)
	}
}

func TestViewCommands(t *testing.T) {
	m := fixture(t)

	stdout, stderr, err := run(t, m, "ag")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "医薬品コード,薬価基準収載医薬品コード,基本漢字名称,AG区分,YJコード\n") {
		t.Errorf("ag = %q", stdout)
	}
	if !strings.Contains(stderr, "AG list 20240603: 2 rows") {
		t.Errorf("stderr = %q", stderr)
	}

	dir := t.TempDir()
	if _, _, err := run(t, m, "bs", "--year", "2016", "-o", dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "BS_20170301.csv")); err != nil {
		t.Error(err)
	}

	stdout, _, err = run(t, m, "bs", "--years")
	if err != nil || stdout != "2016\n" {
		t.Errorf("bs --years = %q, %v", stdout, err)
	}

	stdout, _, err = run(t, m, "y-all", "2016")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(strings.TrimSpace(stdout), "\n"); got != 4 {
		t.Errorf("y-all rows = %d: %q", got, stdout)
	}
	if _, _, err := run(t, m, "y-all", "16"); err == nil {
		t.Error("expected an error for a two-digit year")
	}

	stdout, _, err = run(t, m, "y-with-yj", "--kaitei", "2016")
	if err != nil {
		t.Fatal(err)
	}
	header, _, _ := strings.Cut(stdout, "\n")
	if !strings.HasSuffix(header, ",YJコード") {
		t.Errorf("y-with-yj header = %q", header)
	}
}
