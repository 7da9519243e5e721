// Package ledger computes allocation reports from a set of transactions:
// category classification, revenue allocation across buckets, plan-tier
// gating and the derived balance sheet. Everything here is a pure,
// in-memory computation.
package ledger

import "strings"

// Classification groups a category by how it affects allocation.
type Classification int

const (
	Generic Classification = iota
	Capital
	ZakatLinked
	InvestmentLinked
)

func (c Classification) String() string {
	switch c {
	case Capital:
		return "capital"
	case ZakatLinked:
		return "zakat"
	case InvestmentLinked:
		return "investment"
	}
	return "generic"
}

// DefaultCategoryLabel is shown for transactions with a blank category.
const DefaultCategoryLabel = "Lain-lain"

var capitalCategories = []string{"Modal", "Modal Berbayar", "Modal Pinjaman"}

var zakatCategories = []string{"Zakat"}

// Asset and equipment purchases are offset against the investment bucket.
var investmentCategories = []string{
	"Peralatan Pejabat",
	"Aset Pelaburan",
	"Aset Hartanah",
	"Bangunan",
	"Kenderaan",
	"Jentera",
	"Hartanah",
	"Saham",
}

var classifications = buildClassifications()

func buildClassifications() map[string]Classification {
	m := make(map[string]Classification)
	for _, c := range capitalCategories {
		m[c] = Capital
	}
	for _, c := range zakatCategories {
		m[c] = ZakatLinked
	}
	for _, c := range investmentCategories {
		m[c] = InvestmentLinked
	}
	return m
}

// Classify maps a category to its classification. Unknown categories are Generic.
func Classify(category string) Classification {
	if c, ok := classifications[strings.TrimSpace(category)]; ok {
		return c
	}
	return Generic
}

// DisplayCategory returns the label a category is itemized under.
func DisplayCategory(category string) string {
	if c := strings.TrimSpace(category); c != "" {
		return c
	}
	return DefaultCategoryLabel
}

// CategoryInfo describes one category of the known vocabulary.
type CategoryInfo struct {
	Name           string `json:"name"`
	Classification string `json:"classification"`
}

// KnownCategories lists the categories with a non-generic classification.
func KnownCategories() []CategoryInfo {
	var out []CategoryInfo
	for _, group := range [][]string{capitalCategories, zakatCategories, investmentCategories} {
		for _, name := range group {
			out = append(out, CategoryInfo{Name: name, Classification: Classify(name).String()})
		}
	}
	return out
}
