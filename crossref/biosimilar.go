package crossref

import (
	"regexp"

	"github.com/shiro46mt/jp-medicine-master/table"
)

// Generic-information table columns.
const (
	ColIngredient  = "成分名"
	ColGenericFlag = "各先発医薬品の後発医薬品の有無に関する情報"
)

var (
	// "［インスリン グラルギン後続1］"
	successorPattern = regexp.MustCompile(`［(.+)後続`)
	// "フィルグラスチム（遺伝子組換え）"
	recombinantPattern = regexp.MustCompile(`^(.+)（遺伝子組換え）`)
)

// BiosimilarIngredient extracts the biological ingredient from a generic-information
// ingredient name. ok is false for non-biological products.
func BiosimilarIngredient(name string) (string, bool) {
	if m := successorPattern.FindStringSubmatch(name); m != nil {
		return m[1], true
	}
	if m := recombinantPattern.FindStringSubmatch(name); m != nil {
		return m[1], true
	}
	return "", false
}

func biosimilarTag(flag string) (Tag, bool) {
	switch flag {
	case "3", "★":
		return TagBiosimilar, true
	case "2", "☆":
		return TagOriginal, true
	default:
		return "", false
	}
}

type bsEntry struct {
	tag        Tag
	ingredient string
}

// Biosimilars joins the biological entries of the generic-information table to the master
// on the price-listing code. Master order is kept; a master row yields one output row per
// matching generic entry.
func Biosimilars(master, generics *table.Table) Result {
	byCode := make(map[string][]bsEntry)
	for _, r := range generics.Rows {
		ingredient, ok := BiosimilarIngredient(r.Get(ColIngredient).String())
		if !ok {
			continue
		}
		tag, ok := biosimilarTag(r.Get(ColGenericFlag).String())
		if !ok {
			continue
		}
		code := r.Get(ColPriceCode).String()
		if code == "" {
			continue
		}
		byCode[code] = append(byCode[code], bsEntry{tag: tag, ingredient: ingredient})
	}

	var res Result
	for _, r := range master.Rows {
		entries := byCode[r.Get(ColPriceCode).String()]
		for _, e := range entries {
			row := masterRow(r)
			row.Tag = e.tag
			row.Ingredient = e.ingredient
			res.Rows = append(res.Rows, row)
		}
	}
	return res
}
