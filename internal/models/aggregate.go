package models

import (
	"math/big"

	apierrors "github.com/katastar/katastar/internal/errors"
)

// EffectiveOwners resolves who actually owns a share: the direct owners when
// any are listed, otherwise the union of the sub-shares' effective owners in
// sub-share order. Direct owners take precedence; sub-shares are not also
// included alongside them.
//
// The wire format is tree-shaped by construction, so a revisited share id is
// a data-integrity bug and a hard error, not something to recover from.
func (s *LRShare) EffectiveOwners() ([]Party, error) {
	return effectiveOwners(s, make(map[int64]bool))
}

func effectiveOwners(s *LRShare, seen map[int64]bool) ([]Party, error) {
	if seen[s.LRUnitShareID] {
		return nil, apierrors.New(apierrors.KindInternal, map[string]interface{}{
			"reason":        "share_cycle",
			"lrUnitShareId": s.LRUnitShareID,
		})
	}
	seen[s.LRUnitShareID] = true

	if len(s.Owners) > 0 {
		return s.Owners, nil
	}

	var owners []Party
	for i := range s.SubShares {
		sub, err := effectiveOwners(&s.SubShares[i], seen)
		if err != nil {
			return nil, err
		}
		owners = append(owners, sub...)
	}
	return owners, nil
}

// CurrentOwners flattens the effective owners of all active shares,
// deduplicated by identity key (tax number, else name) in first-seen order.
// The same party legitimately appears in several fractional shares; callers
// asking "who are the owners" expect a set, not a multiset.
func (b *OwnershipSheetB) CurrentOwners() ([]Party, error) {
	seen := make(map[string]bool)
	owners := []Party{}

	for i := range b.Shares {
		share := &b.Shares[i]
		if !share.IsActive() {
			continue
		}
		effective, err := share.EffectiveOwners()
		if err != nil {
			return nil, err
		}
		for _, owner := range effective {
			key := owner.IdentityKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			owners = append(owners, owner)
		}
	}
	return owners, nil
}

// KnownFractionSum sums the fractions of active shares exactly. partial is
// true when at least one active share carried no parseable fraction; a
// partial sum must never be presented as "total ownership accounted for",
// since missing fractions are unknown, not zero.
func (b *OwnershipSheetB) KnownFractionSum() (sum *big.Rat, partial bool) {
	sum = new(big.Rat)
	for i := range b.Shares {
		share := &b.Shares[i]
		if !share.IsActive() {
			continue
		}
		f, ok := share.Fraction()
		if !ok {
			partial = true
			continue
		}
		sum.Add(sum, f.Rat())
	}
	return sum, partial
}

// FullyAccounted reports whether the known fractions cover the unit exactly:
// every active share carries a fraction and they sum to 1.
func (b *OwnershipSheetB) FullyAccounted() bool {
	sum, partial := b.KnownFractionSum()
	return !partial && sum.Cmp(big.NewRat(1, 1)) == 0
}
