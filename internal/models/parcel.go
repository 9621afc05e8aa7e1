package models

import (
	"encoding/json"
	"fmt"

	apierrors "github.com/katastar/katastar/internal/errors"
)

// Possessor is one owner entry on a cadastral possession sheet.
//
// The address is required by the wire format but frequently an empty string
// in real data; empty is a value, not absence. The ownership fraction is the
// field that is actually optional (~80% of records lack it).
type Possessor struct {
	Name      string  `json:"name" validate:"required"`
	Address   string  `json:"address"`
	Ownership *string `json:"ownership,omitempty"`
}

// OwnershipFraction parses the "N/D" ownership field. ok=false both when the
// field is absent and when it does not parse; neither is an error.
func (p Possessor) OwnershipFraction() (Fraction, bool) {
	if p.Ownership == nil {
		return Fraction{}, false
	}
	return ParseFraction(*p.Ownership)
}

// PossessionSheet groups possessors under a sheet number. Municipality
// linkage fields appear only in some contexts and stay optional.
type PossessionSheet struct {
	PossessionSheetID     int64       `json:"possessionSheetId"`
	PossessionSheetNumber string      `json:"possessionSheetNumber"`
	CadMunicipalityID     int64       `json:"cadMunicipalityId"`
	CadMunicipalityRegNum *string     `json:"cadMunicipalityRegNum,omitempty"`
	CadMunicipalityName   *string     `json:"cadMunicipalityName,omitempty"`
	PossessionSheetTypeID *int64      `json:"possessionSheetTypeId,omitempty"`
	Possessors            []Possessor `json:"possessors" validate:"dive"`
}

// ParcelPart is a land-use classification slice of a parcel.
type ParcelPart struct {
	ParcelPartID          int64   `json:"parcelPartId"`
	Name                  string  `json:"name" validate:"required"`
	Area                  string  `json:"area"`
	PossessionSheetID     int64   `json:"possessionSheetId"`
	PossessionSheetNumber string  `json:"possessionSheetNumber"`
	LastChangeLogNumber   *string `json:"lastChangeLogNumber,omitempty"`
	Building              bool    `json:"building"`

	// AreaM2 is Area parsed during validation; it is not a wire field.
	AreaM2 int `json:"-"`
}

// LandRegistryUnit is the land-registry reference embedded in parcel
// responses. Most fields are optional: only identity is reliably present.
type LandRegistryUnit struct {
	LRUnitID       int64   `json:"lrUnitId"`
	LRUnitNumber   string  `json:"lrUnitNumber" validate:"required"`
	MainBookID     int64   `json:"mainBookId" validate:"required"`
	MainBookName   *string `json:"mainBookName,omitempty"`
	InstitutionID  *int64  `json:"institutionId,omitempty"`
	Status         string  `json:"status"`
	StatusName     *string `json:"statusName,omitempty"`
	Condominiums   bool    `json:"condominiums"`
	LRUnitTypeID   *int64  `json:"lrUnitTypeId,omitempty"`
	LRUnitTypeName *string `json:"lrUnitTypeName,omitempty"`
}

// ParcelLink points at a historical or related parcel record.
type ParcelLink struct {
	ParcelID     int64             `json:"parcelId"`
	ParcelNumber string            `json:"parcelNumber"`
	Address      string            `json:"address"`
	Area         string            `json:"area"`
	LRUnit       *LandRegistryUnit `json:"lrUnit,omitempty"`
	ParcelParts  []ParcelPart      `json:"parcelParts"`
}

// ParcelInfo is the root parcel aggregate returned by /cad/parcel-info.
// It is a read-only projection of a single response; nothing mutates it
// after ParseParcelInfo returns.
type ParcelInfo struct {
	ParcelID              int64             `json:"parcelId" validate:"required"`
	ParcelNumber          string            `json:"parcelNumber" validate:"required"`
	CadMunicipalityID     int64             `json:"cadMunicipalityId"`
	CadMunicipalityRegNum string            `json:"cadMunicipalityRegNum"`
	CadMunicipalityName   string            `json:"cadMunicipalityName"`
	InstitutionID         int64             `json:"institutionId"`
	Address               string            `json:"address"`
	Area                  string            `json:"area"`
	BuildingRemark        int               `json:"buildingRemark"`
	DetailSheetNumber     string            `json:"detailSheetNumber"`
	HasBuildingRight      bool              `json:"hasBuildingRight"`
	ParcelParts           []ParcelPart      `json:"parcelParts" validate:"dive"`
	PossessionSheets      []PossessionSheet `json:"possessionSheets" validate:"dive"`
	LRUnit                *LandRegistryUnit `json:"lrUnit,omitempty"`
	ParcelLinks           []ParcelLink      `json:"parcelLinks"`

	// AreaM2 is Area parsed during validation; it is not a wire field.
	AreaM2 int `json:"-"`
	// Extra holds undocumented wire fields the upstream adds without notice.
	Extra map[string]json.RawMessage `json:"-"`
}

// ParseParcelInfo parses and validates a /cad/parcel-info response body.
// Numeric-string areas are parsed up front so consumers never re-validate;
// a malformed area fails parsing with the field path and raw value.
func ParseParcelInfo(data []byte) (*ParcelInfo, error) {
	var p ParcelInfo
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, apierrors.Wrap(apierrors.KindInvalidResponse, err, map[string]interface{}{
			"reason": "malformed_json",
		})
	}
	p.Extra = captureExtra(data, &p)
	p.normalize()

	if err := validateStruct(&p); err != nil {
		return nil, err
	}

	area, err := parseAreaString("area", p.Area)
	if err != nil {
		return nil, err
	}
	p.AreaM2 = area

	for i := range p.ParcelParts {
		part := &p.ParcelParts[i]
		part.AreaM2, err = parseAreaString(fmt.Sprintf("parcelParts[%d].area", i), part.Area)
		if err != nil {
			return nil, err
		}
	}

	return &p, nil
}

// normalize replaces nil collections with empty ones so consumers never
// null-check lists.
func (p *ParcelInfo) normalize() {
	if p.ParcelParts == nil {
		p.ParcelParts = []ParcelPart{}
	}
	if p.PossessionSheets == nil {
		p.PossessionSheets = []PossessionSheet{}
	}
	if p.ParcelLinks == nil {
		p.ParcelLinks = []ParcelLink{}
	}
	for i := range p.PossessionSheets {
		if p.PossessionSheets[i].Possessors == nil {
			p.PossessionSheets[i].Possessors = []Possessor{}
		}
	}
	for i := range p.ParcelLinks {
		if p.ParcelLinks[i].ParcelParts == nil {
			p.ParcelLinks[i].ParcelParts = []ParcelPart{}
		}
	}
}

// TotalOwners counts possessors across all possession sheets. This is a raw
// count without deduplication, matching legacy display behavior; it is
// deliberately different from the deduplicated CurrentOwners on Sheet B.
func (p *ParcelInfo) TotalOwners() int {
	total := 0
	for _, sheet := range p.PossessionSheets {
		total += len(sheet.Possessors)
	}
	return total
}

// LandUse is one row of a parcel's land-use summary.
type LandUse struct {
	Name   string `json:"name"`
	AreaM2 int    `json:"areaM2"`
}

// LandUseSummary groups parcel parts by land-use name and sums their areas.
// Duplicate names merge additively; row order follows the first occurrence
// of each distinct name.
func (p *ParcelInfo) LandUseSummary() []LandUse {
	index := make(map[string]int, len(p.ParcelParts))
	summary := make([]LandUse, 0, len(p.ParcelParts))

	for _, part := range p.ParcelParts {
		if i, ok := index[part.Name]; ok {
			summary[i].AreaM2 += part.AreaM2
			continue
		}
		index[part.Name] = len(summary)
		summary = append(summary, LandUse{Name: part.Name, AreaM2: part.AreaM2})
	}
	return summary
}
