package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCondominiumTypeName(t *testing.T) {
	tests := []struct {
		typeName string
		want     bool
	}{
		{"ETAŽNO VLASNIŠTVO S ODREĐENIM OMJERIMA", true},
		{"ETAŽNI", true},
		{"etažno vlasništvo", true},
		{"ETAZNO VLASNISTVO", true}, // diacritics already stripped upstream
		{"VLASNIČKI", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsCondominiumTypeName(tt.typeName), "type name %q", tt.typeName)
	}
}

// The wire `condominiums` boolean lies (false for real condominiums), so the
// predicate must ignore it in both directions: all four flag × type-name
// combinations.
func TestIsCondominiumIgnoresWireFlag(t *testing.T) {
	tests := []struct {
		name     string
		flag     bool
		typeName string
		want     bool
	}{
		{"flag false, condominium type", false, "ETAŽNO VLASNIŠTVO S ODREĐENIM OMJERIMA", true},
		{"flag true, condominium type", true, "ETAŽNO VLASNIŠTVO S ODREĐENIM OMJERIMA", true},
		{"flag false, ownership type", false, "VLASNIČKI", false},
		{"flag true, ownership type", true, "VLASNIČKI", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit := LandRegistryUnitDetailed{
				Condominiums:   tt.flag,
				LRUnitTypeName: tt.typeName,
			}
			assert.Equal(t, tt.want, unit.IsCondominium())
		})
	}
}
