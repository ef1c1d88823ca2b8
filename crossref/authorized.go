package crossref

import (
	"github.com/shiro46mt/jp-medicine-master/logging"
	"github.com/shiro46mt/jp-medicine-master/normalize"
	"github.com/shiro46mt/jp-medicine-master/table"
)

// placeholderCode marks listing entries whose generic has no code yet.
const placeholderCode = "##"

// AGPair is one line of the authorized-generic listing: an original product and its AG.
type AGPair struct {
	OriginalName  string `json:"original_name"`
	OriginalMaker string `json:"original_maker"`
	AGCode        string `json:"ag_code"`
	AGName        string `json:"ag_name"`
	AGMaker       string `json:"ag_maker"`
}

// AGList is the parsed listing with its publication date (YYYYMMDD).
type AGList struct {
	Updated string   `json:"updated"`
	Pairs   []AGPair `json:"pairs"`
}

type assignment struct {
	tag       Tag
	secondary string
}

// AuthorizedGenerics tags master rows named by the listing. Original names go through the
// heuristic chain, AG names must match exactly. When a row is named more than once the last
// pair wins. Output follows master row order; untagged rows are omitted.
func AuthorizedGenerics(master *table.Table, pairs []AGPair) Result {
	ix := newNameIndex(master)
	assigned := make(map[int]assignment)

	var res Result
	skipped := 0

	for _, p := range pairs {
		if p.AGCode == placeholderCode {
			skipped++
			continue
		}

		original := normalize.Name(p.OriginalName)
		if rows, by := matchOriginal(ix, original); len(rows) > 0 {
			if by != exact.name {
				logging.Debug("Original matched by heuristic", "name", original, "strategy", by, "rows", len(rows))
			}
			for _, i := range rows {
				assigned[i] = assignment{tag: TagOriginal, secondary: master.Rows[i].Get(ColPriceCode).String()}
			}
		} else {
			res.warn("original", original)
		}

		generic := normalize.Name(p.AGName)
		if rows, _ := matchGeneric(ix, generic); len(rows) > 0 {
			for _, i := range rows {
				assigned[i] = assignment{tag: TagAuthorizedGeneric, secondary: p.AGCode}
			}
		} else {
			res.warn("generic", generic)
		}
	}

	if skipped > 0 {
		logging.Debug("Listing entries without an AG code skipped", "count", skipped)
	}

	res.Rows = make([]Row, 0, len(assigned))
	for i, r := range master.Rows {
		a, ok := assigned[i]
		if !ok {
			continue
		}
		row := masterRow(r)
		row.Tag = a.tag
		row.SecondaryCode = a.secondary
		res.Rows = append(res.Rows, row)
	}

	return res
}
