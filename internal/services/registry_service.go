// Package services implements the lookup flows composed from the raw
// registry endpoints: resolving human-friendly identifiers (municipality
// names, parcel numbers) down to the IDs the registry actually keys on.
package services

import (
	"context"
	"strings"
	"unicode"

	apierrors "github.com/katastar/katastar/internal/errors"
	"github.com/katastar/katastar/internal/logger"
	"github.com/katastar/katastar/internal/models"
)

// RegistryAPI is the registry surface the service needs. *client.Client
// satisfies it; tests substitute a mock.
type RegistryAPI interface {
	SearchMunicipalities(ctx context.Context, term, officeID, departmentID string) ([]models.MunicipalitySearchResult, error)
	SearchParcels(ctx context.Context, parcelNumber, municipalityRegNum string) ([]models.ParcelSearchResult, error)
	GetParcelInfo(ctx context.Context, parcelID string) (*models.ParcelInfo, error)
	GetLRUnit(ctx context.Context, lrUnitNumber string, mainBookID int64, historical bool) (*models.LandRegistryUnitDetailed, error)
}

// RegistryService defines the lookup operations exposed to the CLI.
type RegistryService interface {
	// ResolveMunicipality maps a municipality name or registration number to
	// a single search result. Returns a municipality_not_found error when
	// nothing matches or the term is ambiguous.
	ResolveMunicipality(ctx context.Context, nameOrRegNum string) (models.MunicipalitySearchResult, error)

	// LookupParcel retrieves the full parcel record for an exact parcel
	// number within a municipality given by name or registration number.
	LookupParcel(ctx context.Context, parcelNumber, municipality string) (*models.ParcelInfo, error)

	// ResolveLRUnit walks from a parcel number to its land registry unit.
	// Each stage keeps its own error kind: municipality_not_found,
	// parcel_not_found, lr_unit_not_found.
	ResolveLRUnit(ctx context.Context, parcelNumber, municipality string) (*models.LandRegistryUnitDetailed, error)
}

type registryService struct {
	api RegistryAPI
	log *logger.Logger
}

// NewRegistryService creates a RegistryService on top of the given registry API.
func NewRegistryService(api RegistryAPI, log *logger.Logger) RegistryService {
	return &registryService{api: api, log: log}
}

func (s *registryService) ResolveMunicipality(ctx context.Context, nameOrRegNum string) (models.MunicipalitySearchResult, error) {
	term := strings.TrimSpace(nameOrRegNum)

	results, err := s.api.SearchMunicipalities(ctx, term, "", "")
	if err != nil {
		return models.MunicipalitySearchResult{}, err
	}

	notFound := func(reason string) error {
		return apierrors.New(apierrors.KindMunicipalityNotFound, map[string]interface{}{
			"municipality": nameOrRegNum,
			"reason":       reason,
		})
	}

	if len(results) == 0 {
		return models.MunicipalitySearchResult{}, notFound("no_match")
	}

	// A registration number identifies exactly one municipality.
	if isDigits(term) {
		for _, m := range results {
			if m.MunicipalityRegNum == term {
				return m, nil
			}
		}
		return models.MunicipalitySearchResult{}, notFound("no_match")
	}

	// Prefer an exact name match; a unique substring match also resolves.
	for _, m := range results {
		if strings.EqualFold(m.MunicipalityName(), term) {
			return m, nil
		}
	}
	if len(results) == 1 {
		return results[0], nil
	}

	s.log.Debug("ambiguous municipality term", map[string]interface{}{
		"term":    nameOrRegNum,
		"matches": len(results),
	})
	return models.MunicipalitySearchResult{}, notFound("ambiguous")
}

func (s *registryService) LookupParcel(ctx context.Context, parcelNumber, municipality string) (*models.ParcelInfo, error) {
	muni, err := s.ResolveMunicipality(ctx, municipality)
	if err != nil {
		return nil, err
	}

	results, err := s.api.SearchParcels(ctx, parcelNumber, muni.MunicipalityRegNum)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.ParcelNumber == parcelNumber {
			s.log.Info("parcel resolved", map[string]interface{}{
				"parcelNumber": parcelNumber,
				"parcelId":     r.ParcelID,
				"municipality": muni.MunicipalityName(),
			})
			return s.api.GetParcelInfo(ctx, r.ParcelID)
		}
	}

	return nil, apierrors.New(apierrors.KindParcelNotFound, map[string]interface{}{
		"parcelNumber":       parcelNumber,
		"municipalityRegNum": muni.MunicipalityRegNum,
	})
}

func (s *registryService) ResolveLRUnit(ctx context.Context, parcelNumber, municipality string) (*models.LandRegistryUnitDetailed, error) {
	parcel, err := s.LookupParcel(ctx, parcelNumber, municipality)
	if err != nil {
		return nil, err
	}

	if parcel.LRUnit == nil || parcel.LRUnit.MainBookID == 0 {
		return nil, apierrors.New(apierrors.KindLRUnitNotFound, map[string]interface{}{
			"parcelNumber": parcelNumber,
			"reason":       "parcel_has_no_lr_unit",
		})
	}

	s.log.Info("resolving land registry unit", map[string]interface{}{
		"lrUnitNumber": parcel.LRUnit.LRUnitNumber,
		"mainBookId":   parcel.LRUnit.MainBookID,
	})
	return s.api.GetLRUnit(ctx, parcel.LRUnit.LRUnitNumber, parcel.LRUnit.MainBookID, false)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
