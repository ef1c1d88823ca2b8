package table

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/shiro46mt/jp-medicine-master/catalog"
)

func sample() *Table {
	t := New(catalog.KindY, "2016/20161208.csv", []string{"医薬品コード", "基本漢字名称", "変更区分"})
	t.Append(Row{"医薬品コード": Text("620000002"), "基本漢字名称": Text("アスピリン"), "変更区分": Number(0)})
	t.Append(Row{"医薬品コード": Text("610000001"), "基本漢字名称": Text("バファリン"), "変更区分": Number(9)})
	t.Append(Row{"医薬品コード": Text("610000001"), "基本漢字名称": Text("バファリン配合錠"), "変更区分": Null()})
	return t
}

func TestValue(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		null    bool
		wantErr bool
	}{
		{"1,234", "1234", false, false},
		{" 12.5 ", "12.5", false, false},
		{"", "", true, false},
		{" ", "", true, false},
		{"abc", "", false, true},
	}

	for _, tt := range tests {
		v, err := ParseNumber(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseNumber(%q) error = %v", tt.in, err)
		}
		if tt.wantErr {
			continue
		}
		if v.String() != tt.want || v.IsNull() != tt.null {
			t.Errorf("ParseNumber(%q) = %q (null=%v)", tt.in, v.String(), v.IsNull())
		}
	}

	if !Text("").IsNull() {
		t.Error("empty text should be null")
	}
	if f, ok := Number(3).Float(); !ok || f != 3 {
		t.Errorf("Float() = %v %v", f, ok)
	}
	if _, ok := Text("3").Float(); ok {
		t.Error("text should not report a number")
	}
	if !Text("a").Equal(Text("a")) || Text("1").Equal(Number(1)) {
		t.Error("Equal compares kind and content")
	}
}

func TestRename(t *testing.T) {
	tb := sample()

	if !tb.Rename("基本漢字名称", "名称") {
		t.Fatal("Rename should report an existing column")
	}
	if tb.HasColumn("基本漢字名称") || !tb.HasColumn("名称") {
		t.Errorf("columns after rename: %v", tb.Columns)
	}
	if got := tb.Rows[0].Get("名称").String(); got != "アスピリン" {
		t.Errorf("renamed value = %q", got)
	}
	if tb.Rename("missing", "x") {
		t.Error("Rename of a missing column should report false")
	}

	tb.Rename("名称", "医薬品コード")
	if want := []string{"医薬品コード", "変更区分"}; !reflect.DeepEqual(tb.Columns, want) {
		t.Errorf("rename onto existing column: %v, want %v", tb.Columns, want)
	}
}

func TestFilterSelectSort(t *testing.T) {
	tb := sample()

	changed := tb.Filter(func(r Row) bool {
		f, ok := r.Get("変更区分").Float()
		return ok && f == 9
	})
	if changed.Len() != 1 || changed.Rows[0].Get("基本漢字名称").String() != "バファリン" {
		t.Errorf("Filter returned %d rows", changed.Len())
	}

	sel := tb.Select("基本漢字名称", "none")
	if want := []string{"基本漢字名称", "none"}; !reflect.DeepEqual(sel.Columns, want) {
		t.Errorf("Select columns = %v", sel.Columns)
	}
	if !sel.Rows[0].Get("none").IsNull() {
		t.Error("unknown selected column should be null")
	}

	tb.SortStableBy("医薬品コード")
	var names []string
	for _, r := range tb.Rows {
		names = append(names, r.Get("基本漢字名称").String())
	}
	if want := []string{"バファリン", "バファリン配合錠", "アスピリン"}; !reflect.DeepEqual(names, want) {
		t.Errorf("stable sort order = %v, want %v", names, want)
	}
}

func TestRecordsAndJSON(t *testing.T) {
	tb := sample()

	recs := tb.Records()
	if len(recs) != 4 {
		t.Fatalf("Records() len = %d", len(recs))
	}
	if want := []string{"610000001", "バファリン配合錠", ""}; !reflect.DeepEqual(recs[3], want) {
		t.Errorf("last record = %v", recs[3])
	}

	tb.AddColumn("AG区分", func(r Row) Value { return Text("AG") })
	body, err := json.Marshal(tb)
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Kind    string   `json:"kind"`
		Source  string   `json:"source"`
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Kind != "y" || decoded.Source != "2016/20161208.csv" || len(decoded.Columns) != 4 {
		t.Errorf("unexpected header %+v", decoded)
	}
	if decoded.Rows[1][2] != float64(9) || decoded.Rows[2][2] != nil || decoded.Rows[0][3] != "AG" {
		t.Errorf("unexpected row values %v", decoded.Rows)
	}
}
