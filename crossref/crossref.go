// Package crossref tags rows of the drug master as originals, authorized generics or
// biosimilars by joining them with third-party listings.
package crossref

import (
	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/logging"
	"github.com/shiro46mt/jp-medicine-master/table"
)

// Master columns used for matching and output.
const (
	ColDrugCode  = "医薬品コード"
	ColPriceCode = "薬価基準収載医薬品コード"
	ColName      = "基本漢字名称"
)

// Tag classifies a master row.
type Tag string

const (
	TagOriginal          Tag = "original"
	TagAuthorizedGeneric Tag = "authorized-generic"
	TagBiosimilar        Tag = "biosimilar"
)

// Label returns the published Japanese label of the tag.
func (t Tag) Label() string {
	switch t {
	case TagOriginal:
		return "先発"
	case TagAuthorizedGeneric:
		return "AG"
	case TagBiosimilar:
		return "BS"
	default:
		return string(t)
	}
}

// Row is one classified master row.
type Row struct {
	DrugCode  string `json:"drug_code"`
	PriceCode string `json:"price_code"`
	Name      string `json:"name"`
	Tag       Tag    `json:"tag"`

	// SecondaryCode is the YJ code of an authorized-generic listing row.
	SecondaryCode string `json:"secondary_code,omitempty"`
	// Ingredient is the biosimilar ingredient name.
	Ingredient string `json:"ingredient,omitempty"`
}

// Warning records a listing entry that could not be matched to the master.
// Warnings are data-quality signals, never errors.
type Warning struct {
	Side string `json:"side"` // "original" or "generic"
	Name string `json:"name"`
}

// Result is the outcome of one cross-reference run.
type Result struct {
	Rows     []Row     `json:"rows"`
	Warnings []Warning `json:"warnings,omitempty"`
}

func (r *Result) warn(side, name string) {
	r.Warnings = append(r.Warnings, Warning{Side: side, Name: name})
	logging.Warn("Listing entry not found in drug master", "side", side, "name", name)
}

// masterRow extracts the matching columns of a master table row.
func masterRow(r table.Row) Row {
	return Row{
		DrugCode:  r.Get(ColDrugCode).String(),
		PriceCode: r.Get(ColPriceCode).String(),
		Name:      r.Get(ColName).String(),
	}
}

// AGTable renders an authorized-generic result with the published column names.
func (r Result) AGTable() *table.Table {
	t := table.New(catalog.KindY, "", []string{ColDrugCode, ColPriceCode, ColName, "AG区分", "YJコード"})
	for _, row := range r.Rows {
		t.Append(table.Row{
			ColDrugCode:  table.Text(row.DrugCode),
			ColPriceCode: table.Text(row.PriceCode),
			ColName:      table.Text(row.Name),
			"AG区分":       table.Text(row.Tag.Label()),
			"YJコード":      table.Text(row.SecondaryCode),
		})
	}
	return t
}

// BSTable renders a biosimilar result with the published column names.
func (r Result) BSTable() *table.Table {
	t := table.New(catalog.KindY, "", []string{ColDrugCode, ColPriceCode, ColName, "BS区分", "BS成分名"})
	for _, row := range r.Rows {
		t.Append(table.Row{
			ColDrugCode:  table.Text(row.DrugCode),
			ColPriceCode: table.Text(row.PriceCode),
			ColName:      table.Text(row.Name),
			"BS区分":       table.Text(row.Tag.Label()),
			"BS成分名":      table.Text(row.Ingredient),
		})
	}
	return t
}
