package models

import (
	"encoding/json"
	"strings"

	apierrors "github.com/katastar/katastar/internal/errors"
)

// CadastralOffice is one regional cadastral office (Područni ured za
// katastar). Office IDs match the institutionId on parcel responses.
type CadastralOffice struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// MunicipalitySearchResult is one row of the municipality search endpoint.
// The wire format uses generic key/value field names.
type MunicipalitySearchResult struct {
	MunicipalityID     string  `json:"key1"`
	CodeAndName        string  `json:"value1"`
	MunicipalityRegNum string  `json:"key2"`
	InstitutionID      string  `json:"value2"`
	DepartmentID       *string `json:"value3,omitempty"`
	DisplayValue       string  `json:"displayValue1"`
}

// MunicipalityName extracts the bare name from the combined "334979 SAVAR"
// code-and-name field.
func (m MunicipalitySearchResult) MunicipalityName() string {
	_, name, found := strings.Cut(m.CodeAndName, " ")
	if !found {
		return m.CodeAndName
	}
	return name
}

// ParcelSearchResult is one row of the parcel-number search endpoint. The
// companion fields (key2, value2, value3, displayValue1) are documented null
// and ignored.
type ParcelSearchResult struct {
	ParcelID     string `json:"key1" validate:"required"`
	ParcelNumber string `json:"value1" validate:"required"`
}

// ParseOffices parses the office-list response body.
func ParseOffices(data []byte) ([]CadastralOffice, error) {
	return parseList[CadastralOffice](data)
}

// ParseMunicipalities parses the municipality search response body.
func ParseMunicipalities(data []byte) ([]MunicipalitySearchResult, error) {
	return parseList[MunicipalitySearchResult](data)
}

// ParseParcelSearchResults parses the parcel-number search response body.
// An empty list is a successful empty result, not an error.
func ParseParcelSearchResults(data []byte) ([]ParcelSearchResult, error) {
	return parseList[ParcelSearchResult](data)
}

func parseList[T any](data []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apierrors.Wrap(apierrors.KindInvalidResponse, err, map[string]interface{}{
			"reason": "malformed_json",
		})
	}
	if items == nil {
		items = []T{}
	}
	for i := range items {
		if err := validateStruct(&items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}
