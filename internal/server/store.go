package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/katastar/katastar/internal/models"
)

// FixtureStore serves registry responses from a directory of JSON fixtures:
//
//	offices.json            list of cadastral offices
//	municipalities.json     list of municipality search rows
//	parcels/<regnum>.json   parcel records per municipality
//	lr-units/<book>-<unit>.json  land registry units
//
// Everything is loaded once at startup; the store is read-only afterwards
// and safe for concurrent use.
type FixtureStore struct {
	offices        []models.CadastralOffice
	municipalities []models.MunicipalitySearchResult
	parcels        map[string][]storedParcel // municipalityRegNum -> parcels
	lrUnits        map[string]json.RawMessage
}

// storedParcel keeps the raw record alongside the fields the search and
// lookup endpoints match on, so responses stay byte-faithful to the fixture.
type storedParcel struct {
	ID     int64
	Number string
	Raw    json.RawMessage
}

// LoadFixtures reads all fixture files under dir. Missing optional files
// leave that dataset empty; a malformed file is a hard error.
func LoadFixtures(dir string) (*FixtureStore, error) {
	s := &FixtureStore{
		parcels: make(map[string][]storedParcel),
		lrUnits: make(map[string]json.RawMessage),
	}

	if err := loadJSONFile(filepath.Join(dir, "offices.json"), &s.offices); err != nil {
		return nil, err
	}
	if err := loadJSONFile(filepath.Join(dir, "municipalities.json"), &s.municipalities); err != nil {
		return nil, err
	}

	parcelFiles, err := filepath.Glob(filepath.Join(dir, "parcels", "*.json"))
	if err != nil {
		return nil, err
	}
	for _, path := range parcelFiles {
		regNum := strings.TrimSuffix(filepath.Base(path), ".json")

		var raws []json.RawMessage
		if err := loadJSONFile(path, &raws); err != nil {
			return nil, err
		}
		for _, raw := range raws {
			var probe struct {
				ParcelID     int64  `json:"parcelId"`
				ParcelNumber string `json:"parcelNumber"`
			}
			if err := json.Unmarshal(raw, &probe); err != nil {
				return nil, fmt.Errorf("parcel fixture %s: %w", path, err)
			}
			s.parcels[regNum] = append(s.parcels[regNum], storedParcel{
				ID:     probe.ParcelID,
				Number: probe.ParcelNumber,
				Raw:    raw,
			})
		}
	}

	unitFiles, err := filepath.Glob(filepath.Join(dir, "lr-units", "*.json"))
	if err != nil {
		return nil, err
	}
	for _, path := range unitFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("lr-unit fixture %s: invalid JSON", path)
		}
		key := strings.TrimSuffix(filepath.Base(path), ".json")
		s.lrUnits[key] = json.RawMessage(data)
	}

	return s, nil
}

func loadJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("fixture %s: %w", path, err)
	}
	return nil
}

// Offices returns all cadastral offices.
func (s *FixtureStore) Offices() []models.CadastralOffice {
	return s.offices
}

// SearchMunicipalities filters municipalities the way the registry does:
// officeId matches value2, departmentId matches value3, and the search term
// is a case-insensitive substring of the code-and-name field or the
// registration number.
func (s *FixtureStore) SearchMunicipalities(search, officeID, departmentID string) []models.MunicipalitySearchResult {
	results := []models.MunicipalitySearchResult{}

	term := strings.ToLower(search)
	for _, m := range s.municipalities {
		if officeID != "" && m.InstitutionID != officeID {
			continue
		}
		if departmentID != "" && (m.DepartmentID == nil || *m.DepartmentID != departmentID) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(m.CodeAndName), term) &&
			!strings.Contains(strings.ToLower(m.MunicipalityRegNum), term) {
			continue
		}
		results = append(results, m)
	}
	return results
}

// SearchParcels returns search rows for parcel numbers starting with the
// search term within a municipality. An unknown municipality yields an empty
// list, matching the registry.
func (s *FixtureStore) SearchParcels(search, municipalityRegNum string) []models.ParcelSearchResult {
	results := []models.ParcelSearchResult{}

	term := strings.TrimSpace(search)
	for _, p := range s.parcels[municipalityRegNum] {
		if strings.HasPrefix(p.Number, term) {
			results = append(results, models.ParcelSearchResult{
				ParcelID:     strconv.FormatInt(p.ID, 10),
				ParcelNumber: p.Number,
			})
		}
	}
	return results
}

// ParcelByID returns the raw parcel record, scanning all municipalities.
func (s *FixtureStore) ParcelByID(parcelID int64) (json.RawMessage, bool) {
	for _, parcels := range s.parcels {
		for _, p := range parcels {
			if p.ID == parcelID {
				return p.Raw, true
			}
		}
	}
	return nil, false
}

// LRUnit returns the raw unit record keyed by "<mainBookId>-<lrUnitNumber>".
func (s *FixtureStore) LRUnit(lrUnitNumber string, mainBookID int64) (json.RawMessage, bool) {
	raw, ok := s.lrUnits[fmt.Sprintf("%d-%s", mainBookID, lrUnitNumber)]
	return raw, ok
}

// Counts reports the loaded dataset sizes for the root status endpoint.
func (s *FixtureStore) Counts() (offices, municipalities, parcelSets, lrUnits int) {
	return len(s.offices), len(s.municipalities), len(s.parcels), len(s.lrUnits)
}
