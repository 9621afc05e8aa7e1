package models

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
)

// Fraction is an ownership share as recorded in the registry, e.g. 4/8.
// The zero value is not a valid fraction; use the ok result of the parsers.
type Fraction struct {
	Numerator   int64
	Denominator int64
}

var (
	fractionToken = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
	bareFraction  = regexp.MustCompile(`^\s*(\d+)\s*/\s*(\d+)\s*$`)

	// The keyword must stand as its own word so that e.g. "RADIO" does not
	// count as a share marker. Case folding stays inside the regexp engine,
	// keeping match offsets valid on the original string.
	shareKeyword = regexp.MustCompile(`(?i)\bu?dio\b`)
)

// ParseFraction parses a bare "N/D" token such as the possessor ownership
// field. Returns ok=false for anything that is not a well-formed fraction
// with a positive denominator; absence of a fraction is a legitimate outcome
// for the majority of real records, never an error.
func ParseFraction(token string) (Fraction, bool) {
	m := bareFraction.FindStringSubmatch(token)
	if m == nil {
		return Fraction{}, false
	}
	return buildFraction(m[1], m[2])
}

// ExtractFraction pulls an ownership fraction out of free-text legal
// descriptions like "16. Suvlasnički dio: 61/4651 ETAŽNO VLASNIŠTVO (E-16)".
// It takes the first N/D token following a share keyword ("dio"/"udio"),
// or the token itself when the whole string is a bare fraction.
func ExtractFraction(description string) (Fraction, bool) {
	if f, ok := ParseFraction(description); ok {
		return f, true
	}

	loc := shareKeyword.FindStringIndex(description)
	if loc == nil {
		return Fraction{}, false
	}

	m := fractionToken.FindStringSubmatch(description[loc[1]:])
	if m == nil {
		return Fraction{}, false
	}
	return buildFraction(m[1], m[2])
}

func buildFraction(num, den string) (Fraction, bool) {
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return Fraction{}, false
	}
	d, err := strconv.ParseInt(den, 10, 64)
	if err != nil || d <= 0 {
		return Fraction{}, false
	}
	return Fraction{Numerator: n, Denominator: d}, true
}

// Rat returns the exact rational value. Summing many shares goes through
// big.Rat so the "fractions sum to 1" check cannot drift.
func (f Fraction) Rat() *big.Rat {
	return big.NewRat(f.Numerator, f.Denominator)
}

// Decimal returns the floating-point value, for display only.
func (f Fraction) Decimal() float64 {
	return float64(f.Numerator) / float64(f.Denominator)
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}
