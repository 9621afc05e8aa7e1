package models

import (
	"strings"
	"unicode"
)

// PartyType is the inferred kind of legal person behind an ownership entry.
type PartyType string

const (
	PartyIndividual   PartyType = "individual"
	PartyCompany      PartyType = "company"
	PartyState        PartyType = "state"
	PartyMunicipality PartyType = "municipality"
	PartyUnknown      PartyType = "unknown"
)

// Party is a legal person as it appears in an lrOwners entry. Parties are
// duplicated per occurrence in the wire format; they carry no back-references
// and are never mutated after parsing.
type Party struct {
	LROwnerID int64    `json:"lrOwnerId,omitempty"`
	Name      string   `json:"name" validate:"required"`
	Address   *string  `json:"address,omitempty"`
	TaxNumber *string  `json:"taxNumber,omitempty"`
	LREntry   *LREntry `json:"lrEntry,omitempty"`
}

// IdentityKey is the deduplication key for a party: the tax number when
// present, otherwise the name. The same person can hold several fractional
// shares and must collapse to one entry in "who owns this" views.
func (p Party) IdentityKey() string {
	if p.TaxNumber != nil && *p.TaxNumber != "" {
		return *p.TaxNumber
	}
	return p.Name
}

var companyTokens = []string{"D.O.O", "D.D.", "J.D.O.O", "OBRT", "BANKA", "USTANOVA"}

// Type infers the party type from the name and tax number. The registry does
// not label parties, so this is a heuristic over naming conventions: it is
// meant for display grouping, not legal classification.
func (p Party) Type() PartyType {
	name := foldCroatian(p.Name)

	if strings.Contains(name, "REPUBLIKA HRVATSKA") {
		return PartyState
	}
	if strings.HasPrefix(name, "GRAD ") || strings.HasPrefix(name, "OPCINA ") {
		return PartyMunicipality
	}
	for _, tok := range companyTokens {
		if strings.Contains(name, tok) {
			return PartyCompany
		}
	}
	if p.TaxNumber != nil && isOIB(*p.TaxNumber) {
		return PartyIndividual
	}
	return PartyUnknown
}

// isOIB reports whether s looks like a Croatian personal identification
// number: exactly 11 digits.
func isOIB(s string) bool {
	if len(s) != 11 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
