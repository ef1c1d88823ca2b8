package crossref

import (
	"sort"
	"strings"
	"unicode"

	"github.com/shiro46mt/jp-medicine-master/normalize"
	"github.com/shiro46mt/jp-medicine-master/table"
)

// nameIndex maps normalized master names to row positions. A name may occur on several rows.
type nameIndex struct {
	rows  map[string][]int
	names []string // sorted keys, for prefix scans
}

func newNameIndex(master *table.Table) *nameIndex {
	ix := &nameIndex{rows: make(map[string][]int, master.Len())}
	for i, r := range master.Rows {
		n := normalize.Name(r.Get(ColName).String())
		if n == "" {
			continue
		}
		if _, ok := ix.rows[n]; !ok {
			ix.names = append(ix.names, n)
		}
		ix.rows[n] = append(ix.rows[n], i)
	}
	sort.Strings(ix.names)
	return ix
}

func (ix *nameIndex) lookup(name string) []int { return ix.rows[name] }

// strategy maps a normalized listing name to master rows. An empty result means no match.
type strategy struct {
	name  string
	match func(ix *nameIndex, name string) []int
}

var exact = strategy{
	name:  "exact",
	match: func(ix *nameIndex, name string) []int { return ix.lookup(name) },
}

// Listings sometimes append the unit to a product whose master name has none.
var stripMgSuffix = strategy{
	name: "strip-mg-suffix",
	match: func(ix *nameIndex, name string) []int {
		base, ok := strings.CutSuffix(name, "mg")
		if !ok || base == "" {
			return nil
		}
		return ix.lookup(base)
	},
}

// "OD錠5mg" and "OD5mg錠" both occur. Only an existing master name counts as a match.
var odTabletTransposition = strategy{
	name: "od-tablet-transposition",
	match: func(ix *nameIndex, name string) []int {
		if base, ok := strings.CutSuffix(name, "錠"); ok && strings.Contains(base, "OD") && !strings.Contains(base, "OD錠") {
			if rows := ix.lookup(strings.Replace(base, "OD", "OD錠", 1)); len(rows) > 0 {
				return rows
			}
		}
		if strings.Contains(name, "OD錠") {
			return ix.lookup(strings.Replace(name, "OD錠", "OD", 1) + "錠")
		}
		return nil
	},
}

// A listing without any strength covers every strength of the product, except the
// selective-care ("(選)") entries.
var strengthOmittedPrefix = strategy{
	name: "strength-omitted-prefix",
	match: func(ix *nameIndex, name string) []int {
		if strings.IndexFunc(name, unicode.IsDigit) >= 0 {
			return nil
		}
		start := sort.SearchStrings(ix.names, name)
		var rows []int
		for _, n := range ix.names[start:] {
			if !strings.HasPrefix(n, name) {
				break
			}
			if strings.Contains(n, "(選)") {
				continue
			}
			rows = append(rows, ix.rows[n]...)
		}
		sort.Ints(rows)
		return rows
	},
}

// firstMatch tries each strategy in order and returns the first non-empty result together
// with the name of the strategy that produced it.
func firstMatch(strategies ...strategy) func(ix *nameIndex, name string) ([]int, string) {
	return func(ix *nameIndex, name string) ([]int, string) {
		for _, s := range strategies {
			if rows := s.match(ix, name); len(rows) > 0 {
				return rows, s.name
			}
		}
		return nil, ""
	}
}

var (
	matchOriginal = firstMatch(exact, stripMgSuffix, odTabletTransposition, strengthOmittedPrefix)
	matchGeneric  = firstMatch(exact)
)
