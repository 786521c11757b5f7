package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	tests := []struct {
		haystack string
		needle   string
		want     bool
	}{
		{"Acme Pharmaceuticals", "pharma", true},
		{"United States", "UNITED", true},
		{"Straße", "STRASSE", true},
		{"Canada", "France", false},
		{"", "x", false},
		{"anything", "", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Contains(tt.haystack, tt.needle), "%q in %q", tt.needle, tt.haystack)
	}
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("History of Kidney disease", "renal", "kidney"))
	assert.True(t, ContainsAny("no MALIGNANCY", "cancer", "malignancy"))
	assert.False(t, ContainsAny("healthy adults", "renal", "kidney"))
	assert.False(t, ContainsAny("anything", ""))
	assert.False(t, ContainsAny("anything"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, Fold("DIABETES"), Fold("diabetes"))
}
