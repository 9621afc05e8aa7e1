package models

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/katastar/katastar/internal/errors"
)

func TestEffectiveOwnersDirectPrecedence(t *testing.T) {
	share := LRShare{
		LRUnitShareID: 1,
		Owners:        []Party{{LROwnerID: 10, Name: "IVA MARIĆ"}},
		// Sub-shares present alongside direct owners must not be flattened in.
		SubShares: []LRShare{
			{LRUnitShareID: 2, Owners: []Party{{LROwnerID: 11, Name: "MARKO MARIĆ"}}},
		},
	}

	owners, err := share.EffectiveOwners()
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, "IVA MARIĆ", owners[0].Name)
}

func TestEffectiveOwnersFlattensSubShares(t *testing.T) {
	share := LRShare{
		LRUnitShareID: 1,
		SubShares: []LRShare{
			{LRUnitShareID: 2, Owners: []Party{{LROwnerID: 11, Name: "MIRNA BARIĆ"}}},
			{
				LRUnitShareID: 3,
				SubShares: []LRShare{
					{LRUnitShareID: 4, Owners: []Party{{LROwnerID: 12, Name: "DINO BARIĆ"}}},
				},
			},
		},
	}

	owners, err := share.EffectiveOwners()
	require.NoError(t, err)
	require.Len(t, owners, 2)
	// Sub-share order is preserved through the recursion.
	assert.Equal(t, "MIRNA BARIĆ", owners[0].Name)
	assert.Equal(t, "DINO BARIĆ", owners[1].Name)
}

func TestEffectiveOwnersCycleGuard(t *testing.T) {
	share := LRShare{
		LRUnitShareID: 7,
		SubShares: []LRShare{
			{LRUnitShareID: 7}, // same id revisited
		},
	}

	_, err := share.EffectiveOwners()
	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindInternal))
}

func TestCurrentOwnersDeduplicatesAndFilters(t *testing.T) {
	oib := "12345678901"
	sheet := OwnershipSheetB{Shares: []LRShare{
		{LRUnitShareID: 1, Status: 0, Owners: []Party{{Name: "IVA MARIĆ", TaxNumber: &oib}}},
		// Same person in a second fractional share: collapsed by tax number.
		{LRUnitShareID: 2, Status: 0, Owners: []Party{{Name: "IVA MARIĆ ROĐ. BARIĆ", TaxNumber: &oib}}},
		{LRUnitShareID: 3, Status: 0, Owners: []Party{{Name: "MARKO MARIĆ"}}},
		// Superseded share: excluded entirely.
		{LRUnitShareID: 4, Status: 2, Owners: []Party{{Name: "STARI VLASNIK"}}},
	}}

	owners, err := sheet.CurrentOwners()
	require.NoError(t, err)
	require.Len(t, owners, 2)

	// First-seen wins, so the first spelling of the deduplicated party stays.
	assert.Equal(t, "IVA MARIĆ", owners[0].Name)
	assert.Equal(t, "MARKO MARIĆ", owners[1].Name)
}

func TestCurrentOwnersEmptySheet(t *testing.T) {
	sheet := OwnershipSheetB{Shares: []LRShare{}}

	owners, err := sheet.CurrentOwners()
	require.NoError(t, err)
	assert.NotNil(t, owners)
	assert.Empty(t, owners)
}

func TestKnownFractionSum(t *testing.T) {
	sheet := OwnershipSheetB{Shares: []LRShare{
		{LRUnitShareID: 1, Status: 0, Description: "1. Suvlasnički dio: 4/8"},
		{LRUnitShareID: 2, Status: 0, Description: "2. Suvlasnički dio: 1/8"},
		{LRUnitShareID: 3, Status: 0, Description: "3. Suvlasnički dio: 3/8"},
	}}

	sum, partial := sheet.KnownFractionSum()
	assert.False(t, partial)
	assert.Equal(t, 0, sum.Cmp(big.NewRat(1, 1)))
	assert.True(t, sheet.FullyAccounted())
}

func TestKnownFractionSumPartial(t *testing.T) {
	sheet := OwnershipSheetB{Shares: []LRShare{
		{LRUnitShareID: 1, Status: 0, Description: "1. Suvlasnički dio: 1/2"},
		{LRUnitShareID: 2, Status: 0, Description: "PRAVO VLASNIŠTVA"}, // no fraction
	}}

	sum, partial := sheet.KnownFractionSum()
	assert.True(t, partial)
	assert.Equal(t, 0, sum.Cmp(big.NewRat(1, 2)))
	assert.False(t, sheet.FullyAccounted())
}

func TestKnownFractionSumIgnoresInactiveShares(t *testing.T) {
	sheet := OwnershipSheetB{Shares: []LRShare{
		{LRUnitShareID: 1, Status: 0, Description: "dio: 1/2"},
		{LRUnitShareID: 2, Status: 2, Description: "dio: 1/2"},
	}}

	sum, partial := sheet.KnownFractionSum()
	assert.False(t, partial)
	assert.Equal(t, 0, sum.Cmp(big.NewRat(1, 2)))
}

func TestKnownFractionSumPrefersStructuredFields(t *testing.T) {
	num, den := int64(1), int64(4)
	sheet := OwnershipSheetB{Shares: []LRShare{
		{LRUnitShareID: 1, Status: 0, Numerator: &num, Denominator: &den, Description: "dio: 9/9"},
	}}

	sum, partial := sheet.KnownFractionSum()
	assert.False(t, partial)
	assert.Equal(t, 0, sum.Cmp(big.NewRat(1, 4)))
}
