// Package catalog maps a logical dataset kind and a temporal selector to one historical file
// of the published drug-master data repository.
package catalog

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/shiro46mt/jp-medicine-master/errs"
)

// Kind identifies a logical dataset of the data repository.
type Kind string

const (
	// KindY is the receipt-processing-system drug master (医薬品マスター).
	KindY Kind = "y"
	// KindPrice is the MHLW NHI price list (薬価基準収載品目リスト).
	KindPrice Kind = "mhlw_price"
	// KindGeneric is the MHLW generic-drug information table (後発医薬品に関する情報).
	KindGeneric Kind = "mhlw_ge"
	// KindHOT13 is the HOT13 code master.
	KindHOT13 Kind = "hot13"
	// KindHOT9 is the HOT9 code master.
	KindHOT9 Kind = "hot9"
)

// NumericColumn is a column coerced to a number after load.
// Optional columns are skipped when a given year's file does not carry them.
type NumericColumn struct {
	Name     string
	Optional bool
}

// RenameRule maps a placeholder header emitted by a source to its semantic name.
type RenameRule struct {
	From     string
	To       string
	Optional bool
}

// KindSpec is the per-kind configuration record.
type KindSpec struct {
	Kind        Kind
	Description string
	Renames     []RenameRule
	Numeric     []NumericColumn

	// KeyColumn identifies a row; it is expected to be unique within one file.
	KeyColumn string

	// FiscalDirs is set when identifiers are namespaced by a fiscal-year directory
	// ("2016/20161208.csv"); only those kinds support revision-year selection.
	FiscalDirs bool

	// DateOf extracts the YYYYMMDD date embedded in an identifier.
	DateOf func(identifier string) (string, bool)
}

var specs = map[Kind]KindSpec{
	KindY: {
		Kind:        KindY,
		Description: "レセプト電算処理システム 医薬品マスター",
		Numeric: []NumericColumn{
			{Name: "変更区分"},
			{Name: "医薬品名・規格名漢字有効桁数", Optional: true},
			{Name: "医薬品名・規格名カナ有効桁数", Optional: true},
			{Name: "単位コード", Optional: true},
			{Name: "単位漢字有効桁数", Optional: true},
			{Name: "金額種別", Optional: true},
			{Name: "新又は現金額"},
			{Name: "麻薬・毒薬・覚醒剤原料・向精神薬", Optional: true},
			{Name: "神経破壊剤", Optional: true},
			{Name: "生物学的製剤", Optional: true},
			{Name: "後発品", Optional: true},
			{Name: "歯科特定薬剤", Optional: true},
			{Name: "造影（補助）剤", Optional: true},
			{Name: "注射容量", Optional: true},
			{Name: "収載方式等識別", Optional: true},
			{Name: "旧金額金額種別", Optional: true},
			{Name: "旧金額", Optional: true},
			{Name: "漢字名称変更区分", Optional: true},
			{Name: "カナ名称変更区分", Optional: true},
			{Name: "剤形", Optional: true},
			{Name: "一般名処方加算対象区分", Optional: true},
			{Name: "抗ＨＩＶ薬区分", Optional: true},
			{Name: "選定療養区分", Optional: true},
		},
		KeyColumn:  "医薬品コード",
		FiscalDirs: true,
		DateOf:     embeddedDate,
	},
	KindPrice: {
		Kind:        KindPrice,
		Description: "薬価基準収載品目リスト（厚生労働省）",
		Renames: []RenameRule{
			{From: "Unnamed: 4", To: "日本薬局方", Optional: true},
			{From: "Unnamed: 5", To: "麻薬", Optional: true},
			{From: "Unnamed: 6", To: "業者名追記", Optional: true},
		},
		Numeric:    []NumericColumn{{Name: "薬価"}},
		KeyColumn:  "薬価基準収載医薬品コード",
		FiscalDirs: true,
		DateOf:     embeddedDate,
	},
	KindGeneric: {
		Kind:        KindGeneric,
		Description: "後発医薬品に関する情報（厚生労働省）",
		Renames: []RenameRule{
			{From: "収載年月日(YYYYMMDD)\n【例】\n2016年4月1日\n(20160401)", To: "収載年月日(YYYYMMDD)", Optional: true},
		},
		KeyColumn:  "薬価基準収載医薬品コード",
		FiscalDirs: true,
		DateOf:     embeddedDate,
	},
	KindHOT13: {
		Kind:        KindHOT13,
		Description: "HOTコードマスター（HOT13）",
		Numeric: []NumericColumn{
			{Name: "包装単位数", Optional: true},
			{Name: "包装総量数", Optional: true},
			{Name: "更新区分"},
		},
		KeyColumn: "基準番号（ＨＯＴコード）",
		DateOf:    embeddedDate,
	},
	KindHOT9: {
		Kind:        KindHOT9,
		Description: "HOTコードマスター（HOT9）",
		Numeric: []NumericColumn{
			{Name: "包装単位数", Optional: true},
			{Name: "包装総量数", Optional: true},
			{Name: "更新区分"},
		},
		KeyColumn: "基準番号（ＨＯＴコード）",
		DateOf:    embeddedDate,
	},
}

// Spec returns the configuration record of kind.
func Spec(kind Kind) (KindSpec, error) {
	s, ok := specs[kind]
	if !ok {
		return KindSpec{}, fmt.Errorf("%w: %q", errs.ErrUnknownDatasetKind, string(kind))
	}
	return s, nil
}

// ParseKind validates a dataset name.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.TrimSpace(name))
	if _, err := Spec(k); err != nil {
		return "", err
	}
	return k, nil
}

// Kinds returns every known kind in name order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(specs))
	for k := range specs {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// embeddedDate returns the last run of exactly 8 digits in the file name:
// "2016/20161208.csv" -> "20161208", "2024/tp20240418-01.csv" -> "20240418".
func embeddedDate(identifier string) (string, bool) {
	base := path.Base(identifier)
	base = strings.TrimSuffix(base, path.Ext(base))

	date := ""
	for i := 0; i < len(base); {
		if base[i] < '0' || base[i] > '9' {
			i++
			continue
		}
		j := i
		for j < len(base) && base[j] >= '0' && base[j] <= '9' {
			j++
		}
		if j-i == 8 {
			date = base[i:j]
		}
		i = j
	}
	return date, date != ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
