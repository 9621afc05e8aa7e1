package models

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldCroatian uppercases a string and strips combining diacritics, so that
// "etažni", "ETAŽNO" and "ETAZNO" all compare equal.
func foldCroatian(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(folder, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(out)
}

// IsCondominiumTypeName reports whether an LR unit type name describes
// condominium (etažno vlasništvo) ownership.
//
// The wire format also carries a `condominiums` boolean, but the upstream
// system populates it incorrectly (it is false for real condominiums), so
// the type name is the source of truth here. Do not reintroduce the flag.
func IsCondominiumTypeName(typeName string) bool {
	return strings.Contains(foldCroatian(typeName), "ETAZN")
}
