package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		category string
		want     Classification
	}{
		{"Modal", Capital},
		{"Modal Berbayar", Capital},
		{"Modal Pinjaman", Capital},
		{"  Modal  ", Capital},
		{"Zakat", ZakatLinked},
		{"Peralatan Pejabat", InvestmentLinked},
		{"Kenderaan", InvestmentLinked},
		{"Saham", InvestmentLinked},
		{"Sewa", Generic},
		{"Jualan", Generic},
		{"modal", Generic},
		{"", Generic},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.category))
		})
	}
}

func TestDisplayCategory(t *testing.T) {
	assert.Equal(t, "Lain-lain", DisplayCategory(""))
	assert.Equal(t, "Lain-lain", DisplayCategory("   "))
	assert.Equal(t, "Sewa", DisplayCategory(" Sewa "))
}

func TestKnownCategories(t *testing.T) {
	cats := KnownCategories()
	assert.Len(t, cats, 12)
	assert.Equal(t, CategoryInfo{Name: "Modal", Classification: "capital"}, cats[0])
	assert.Contains(t, cats, CategoryInfo{Name: "Zakat", Classification: "zakat"})
	assert.Contains(t, cats, CategoryInfo{Name: "Bangunan", Classification: "investment"})
}
