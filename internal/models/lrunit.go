package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	apierrors "github.com/katastar/katastar/internal/errors"
)

// LREntry is one audit-trail record (upis) in the land registry. Every change
// to Sheet A, B or C is caused by an entry.
type LREntry struct {
	Description string `json:"description"`
	OrderNumber string `json:"orderNumber"`
	LREntryID   int64  `json:"lrEntryId,omitempty"`
}

// shareStatusActive is the only status code verified against real samples.
// Other values are passed through and excluded from "current" views.
const shareStatusActive = 0

// LRShare is one line of the ownership sheet (Sheet B). Shares nest
// arbitrarily deep for co-owned condominium units; the nesting is always a
// tree (no parent back-pointers, traversal is top-down only).
type LRShare struct {
	LRUnitShareID     int64   `json:"lrUnitShareId"`
	Description       string  `json:"description"`
	OrderNumber       string  `json:"orderNumber"`
	Status            int     `json:"status"`
	Owners            []Party `json:"lrOwners" validate:"dive"`
	CondominiumNumber *string `json:"condominiumNumber,omitempty"`
	// Condominiums carries apartment descriptions on condominium shares;
	// unrelated to the unreliable root-level boolean of the same name.
	Condominiums []string `json:"condominiums"`

	// Structured fraction fields, rarely populated; the description text is
	// the usual source of truth.
	Numerator   *int64 `json:"numerator,omitempty"`
	Denominator *int64 `json:"denominator,omitempty"`

	// SubShares is decoded from subSharesAndEntries.
	SubShares []LRShare `json:"-" validate:"dive"`
}

// UnmarshalJSON decodes a share, splitting the mixed subSharesAndEntries
// list: elements carrying an lrUnitShareId are sub-shares, the rest are bare
// audit entries already mirrored in the sheet's lrEntries and skipped here.
func (s *LRShare) UnmarshalJSON(data []byte) error {
	type lrShareAlias LRShare
	aux := struct {
		*lrShareAlias
		SubSharesAndEntries []json.RawMessage `json:"subSharesAndEntries"`
	}{lrShareAlias: (*lrShareAlias)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	s.SubShares = []LRShare{}
	for _, raw := range aux.SubSharesAndEntries {
		var probe struct {
			LRUnitShareID int64 `json:"lrUnitShareId"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return err
		}
		if probe.LRUnitShareID == 0 {
			continue
		}
		var sub LRShare
		if err := json.Unmarshal(raw, &sub); err != nil {
			return err
		}
		s.SubShares = append(s.SubShares, sub)
	}

	if s.Owners == nil {
		s.Owners = []Party{}
	}
	if s.Condominiums == nil {
		s.Condominiums = []string{}
	}
	return nil
}

// IsActive reports whether the share is a current (not superseded) row.
func (s *LRShare) IsActive() bool {
	return s.Status == shareStatusActive
}

// Fraction returns the ownership fraction, from the structured fields when
// present, otherwise extracted from the description text. ok=false is a
// legitimate outcome: most real records carry no fraction at all.
func (s *LRShare) Fraction() (Fraction, bool) {
	if s.Numerator != nil && s.Denominator != nil && *s.Denominator > 0 {
		return Fraction{Numerator: *s.Numerator, Denominator: *s.Denominator}, true
	}
	return ExtractFraction(s.Description)
}

// IsCondominiumShare reports whether the share represents a single apartment
// (etaža) within a condominium unit.
func (s *LRShare) IsCondominiumShare() bool {
	return (s.CondominiumNumber != nil && *s.CondominiumNumber != "") || len(s.Condominiums) > 0
}

// OwnershipSheetB aggregates all ownership shares and audit entries of a
// unit (List B).
type OwnershipSheetB struct {
	Shares  []LRShare `json:"lrUnitShares" validate:"dive"`
	Entries []LREntry `json:"lrEntries"`
}

// RightType is the inferred kind of encumbrance recorded in Sheet C.
type RightType string

const (
	RightMortgage    RightType = "mortgage"
	RightEasement    RightType = "easement"
	RightLien        RightType = "lien"
	RightProhibition RightType = "prohibition"
	RightAnnotation  RightType = "annotation"
	RightPreemption  RightType = "preemption"
	RightUsufruct    RightType = "usufruct"
	RightOther       RightType = "other"
)

// rightKeywords maps folded description keywords to right types; order
// matters, the first match wins.
var rightKeywords = []struct {
	token string
	right RightType
}{
	{"ZALOZNO", RightMortgage},
	{"HIPOTEK", RightMortgage},
	{"SLUZNOST", RightEasement},
	{"TRAZBINA", RightLien},
	{"ZABRANA", RightProhibition},
	{"PRVOKUP", RightPreemption},
	{"PLODOUZIV", RightUsufruct},
	{"ZABILJEZBA", RightAnnotation},
}

// EncumbranceGroup is one charge/burden recorded against the unit, grouping
// the audit entries that established it.
//
// ShareOrderNumber is observed to be absent in valid real-world payloads and
// must stay optional; requiring it once rejected good responses.
type EncumbranceGroup struct {
	Description      string    `json:"description"`
	ShareOrderNumber *string   `json:"shareOrderNumber,omitempty"`
	Entries          []LREntry `json:"lrEntries"`
	Beneficiary      *Party    `json:"beneficiary,omitempty"`
}

// RightType infers the kind of encumbrance from the group and entry
// descriptions. Display heuristic only.
func (g *EncumbranceGroup) RightType() RightType {
	folded := foldCroatian(g.Description)
	for _, e := range g.Entries {
		folded += " " + foldCroatian(e.Description)
	}
	for _, kw := range rightKeywords {
		if strings.Contains(folded, kw.token) {
			return kw.right
		}
	}
	return RightOther
}

// EncumbranceSheetC aggregates all encumbrance groups of a unit (List C).
type EncumbranceSheetC struct {
	Groups []EncumbranceGroup `json:"lrEntryGroups"`
}

// HasEncumbrances reports whether any charge is recorded. An empty Sheet C
// is the common case, not an error.
func (c *EncumbranceSheetC) HasEncumbrances() bool {
	return len(c.Groups) > 0
}

// LRUnitParcel is a cadastral parcel as listed inside a unit's Sheet A.
// It mirrors much of ParcelInfo but is scoped to this context.
type LRUnitParcel struct {
	ParcelID              int64             `json:"parcelId"`
	ParcelNumber          string            `json:"parcelNumber"`
	CadMunicipalityID     int64             `json:"cadMunicipalityId"`
	CadMunicipalityRegNum string            `json:"cadMunicipalityRegNum"`
	CadMunicipalityName   string            `json:"cadMunicipalityName"`
	InstitutionID         int64             `json:"institutionId"`
	Address               *string           `json:"address,omitempty"`
	Area                  string            `json:"area"`
	BuildingRemark        int               `json:"buildingRemark"`
	DetailSheetNumber     *string           `json:"detailSheetNumber,omitempty"`
	HasBuildingRight      bool              `json:"hasBuildingRight"`
	ParcelParts           []ParcelPart      `json:"parcelParts"`
	PossessionSheets      []PossessionSheet `json:"possessionSheets"`

	// AreaM2 is Area parsed during assembly. Inside a unit an unparseable
	// area degrades to 0 with a recorded warning instead of failing the
	// whole aggregate; one malformed parcel must not block the rest.
	AreaM2 int `json:"-"`
}

// SheetAParcelList is Sheet A1, the list of parcels registered in the unit.
type SheetAParcelList struct {
	CadParcels []LRUnitParcel `json:"cadParcels"`
}

// TotalArea sums the parcel areas in square metres.
func (a *SheetAParcelList) TotalArea() int {
	total := 0
	for _, p := range a.CadParcels {
		total += p.AreaM2
	}
	return total
}

// ParcelNumbers lists the parcel numbers in sheet order.
func (a *SheetAParcelList) ParcelNumbers() []string {
	numbers := make([]string, 0, len(a.CadParcels))
	for _, p := range a.CadParcels {
		numbers = append(numbers, p.ParcelNumber)
	}
	return numbers
}

// SheetAAdditionalInfo is Sheet A2, usually empty in practice.
type SheetAAdditionalInfo struct {
	Entries []LREntry `json:"lrEntries"`
}

// LandRegistryUnitDetailed is the root LR-unit aggregate returned by
// /lr/lr-unit, combining unit metadata with Sheets A, B and C. Like all
// entities here it is a read-only projection of a single response.
type LandRegistryUnitDetailed struct {
	LRUnitID               int64  `json:"lrUnitId" validate:"required"`
	LRUnitNumber           string `json:"lrUnitNumber" validate:"required"`
	MainBookID             int64  `json:"mainBookId" validate:"required"`
	MainBookName           string `json:"mainBookName"`
	CadastreMunicipalityID int64  `json:"cadastreMunicipalityId"`
	InstitutionID          int64  `json:"institutionId"`
	InstitutionName        string `json:"institutionName"`
	Status                 string `json:"status"`
	StatusName             string `json:"statusName"`
	Verificated            bool   `json:"verificated"`
	// Condominiums is kept as received but is not consulted anywhere:
	// the upstream populates it incorrectly. See IsCondominium.
	Condominiums    bool              `json:"condominiums"`
	LRUnitTypeID    int64             `json:"lrUnitTypeId"`
	LRUnitTypeName  string            `json:"lrUnitTypeName"`
	LastDiaryNumber string            `json:"lastDiaryNumber"`
	ActivePlumbs    []json.RawMessage `json:"activePlumbs"`

	OwnershipB OwnershipSheetB      `json:"ownershipSheetB"`
	SheetA     SheetAParcelList     `json:"possessionSheetA1"`
	SheetAInfo SheetAAdditionalInfo `json:"possessionSheetA2"`
	SheetC     EncumbranceSheetC    `json:"encumbranceSheetC"`

	// Extra holds undocumented wire fields the upstream adds without notice.
	Extra map[string]json.RawMessage `json:"-"`
	// Warnings records per-field degradations (e.g. an unparseable Sheet A
	// area summed as 0) that did not abort assembly.
	Warnings []string `json:"-"`
}

// ParseLandRegistryUnit assembles a /lr/lr-unit response into a validated
// unit. The endpoint wraps the object in a one-element array; both the bare
// object and the array form are accepted. Missing optional sheets are valid
// ("no encumbrances" is the common case); missing root identity is not.
func ParseLandRegistryUnit(data []byte) (*LandRegistryUnitDetailed, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, apierrors.Wrap(apierrors.KindInvalidResponse, err, map[string]interface{}{
				"reason": "malformed_json",
			})
		}
		if len(items) == 0 {
			return nil, apierrors.New(apierrors.KindLRUnitNotFound, map[string]interface{}{
				"reason": "empty_list_response",
			})
		}
		data = items[0]
	}

	var u LandRegistryUnitDetailed
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, apierrors.Wrap(apierrors.KindInvalidResponse, err, map[string]interface{}{
			"reason": "malformed_json",
		})
	}
	u.Extra = captureExtra(data, &u)
	u.normalize()

	if err := validateStruct(&u); err != nil {
		return nil, err
	}

	u.parseAreas()
	return &u, nil
}

// normalize replaces nil collections with empty ones, recursively through
// the sheets, so consumers never null-check lists.
func (u *LandRegistryUnitDetailed) normalize() {
	if u.ActivePlumbs == nil {
		u.ActivePlumbs = []json.RawMessage{}
	}
	if u.OwnershipB.Shares == nil {
		u.OwnershipB.Shares = []LRShare{}
	}
	if u.OwnershipB.Entries == nil {
		u.OwnershipB.Entries = []LREntry{}
	}
	if u.SheetA.CadParcels == nil {
		u.SheetA.CadParcels = []LRUnitParcel{}
	}
	if u.SheetAInfo.Entries == nil {
		u.SheetAInfo.Entries = []LREntry{}
	}
	if u.SheetC.Groups == nil {
		u.SheetC.Groups = []EncumbranceGroup{}
	}
	for i := range u.SheetC.Groups {
		if u.SheetC.Groups[i].Entries == nil {
			u.SheetC.Groups[i].Entries = []LREntry{}
		}
	}
	for i := range u.SheetA.CadParcels {
		p := &u.SheetA.CadParcels[i]
		if p.ParcelParts == nil {
			p.ParcelParts = []ParcelPart{}
		}
		if p.PossessionSheets == nil {
			p.PossessionSheets = []PossessionSheet{}
		}
	}
}

// parseAreas converts the Sheet A area strings. Unlike the strict parcel-info
// boundary, a bad area inside a unit degrades to 0 with a recorded warning so
// the rest of the unit stays displayable.
func (u *LandRegistryUnitDetailed) parseAreas() {
	for i := range u.SheetA.CadParcels {
		p := &u.SheetA.CadParcels[i]

		path := fmt.Sprintf("possessionSheetA1.cadParcels[%d].area", i)
		area, err := parseAreaString(path, p.Area)
		if err != nil {
			u.Warnings = append(u.Warnings, fmt.Sprintf("%s: unparseable area %q counted as 0", path, p.Area))
			area = 0
		}
		p.AreaM2 = area

		for j := range p.ParcelParts {
			part := &p.ParcelParts[j]
			partPath := fmt.Sprintf("possessionSheetA1.cadParcels[%d].parcelParts[%d].area", i, j)
			partArea, err := parseAreaString(partPath, part.Area)
			if err != nil {
				u.Warnings = append(u.Warnings, fmt.Sprintf("%s: unparseable area %q counted as 0", partPath, part.Area))
				partArea = 0
			}
			part.AreaM2 = partArea
		}
	}
}

// AllParcels returns the Sheet A parcel list.
func (u *LandRegistryUnitDetailed) AllParcels() []LRUnitParcel {
	return u.SheetA.CadParcels
}

// AllOwners returns the deduplicated current owners from Sheet B.
func (u *LandRegistryUnitDetailed) AllOwners() ([]Party, error) {
	return u.OwnershipB.CurrentOwners()
}

// HasEncumbrances reports whether Sheet C records any charge.
func (u *LandRegistryUnitDetailed) HasEncumbrances() bool {
	return u.SheetC.HasEncumbrances()
}

// TotalArea sums the Sheet A parcel areas in square metres.
func (u *LandRegistryUnitDetailed) TotalArea() int {
	return u.SheetA.TotalArea()
}

// IsCondominium reports whether the unit records apartment-level (etažno)
// ownership, derived from the type name. The wire `condominiums` boolean is
// deliberately not consulted: the upstream sets it to false for real
// condominiums, and the type name is the reliable signal. Do not "simplify"
// this back to the flag.
func (u *LandRegistryUnitDetailed) IsCondominium() bool {
	return IsCondominiumTypeName(u.LRUnitTypeName)
}

// CondominiumUnitCount counts apartment shares in Sheet B.
func (u *LandRegistryUnitDetailed) CondominiumUnitCount() int {
	count := 0
	for i := range u.OwnershipB.Shares {
		if u.OwnershipB.Shares[i].IsCondominiumShare() {
			count++
		}
	}
	return count
}

// UnitSummary is the quick-display digest of a unit.
type UnitSummary struct {
	UnitNumber       string `json:"unitNumber"`
	MainBook         string `json:"mainBook"`
	Institution      string `json:"institution"`
	StatusName       string `json:"statusName"`
	TypeName         string `json:"typeName"`
	TotalParcels     int    `json:"totalParcels"`
	TotalAreaM2      int    `json:"totalAreaM2"`
	NumOwners        int    `json:"numOwners"`
	HasEncumbrances  bool   `json:"hasEncumbrances"`
	IsCondominium    bool   `json:"isCondominium"`
	CondominiumUnits int    `json:"condominiumUnits,omitempty"`
}

// Summary collects the derived statistics in one struct.
func (u *LandRegistryUnitDetailed) Summary() (UnitSummary, error) {
	owners, err := u.AllOwners()
	if err != nil {
		return UnitSummary{}, err
	}
	return UnitSummary{
		UnitNumber:       u.LRUnitNumber,
		MainBook:         u.MainBookName,
		Institution:      u.InstitutionName,
		StatusName:       u.StatusName,
		TypeName:         u.LRUnitTypeName,
		TotalParcels:     len(u.SheetA.CadParcels),
		TotalAreaM2:      u.TotalArea(),
		NumOwners:        len(owners),
		HasEncumbrances:  u.HasEncumbrances(),
		IsCondominium:    u.IsCondominium(),
		CondominiumUnits: u.CondominiumUnitCount(),
	}, nil
}
