package batch

import (
	"context"

	apierrors "github.com/katastar/katastar/internal/errors"
	"github.com/katastar/katastar/internal/logger"
	"github.com/katastar/katastar/internal/models"
)

// ParcelLookup is the lookup surface a parcel batch needs: direct ID fetches
// and number-within-municipality resolution. The CLI satisfies it by pairing
// *client.Client with services.RegistryService.
type ParcelLookup interface {
	GetParcelInfo(ctx context.Context, parcelID string) (*models.ParcelInfo, error)
	LookupParcel(ctx context.Context, parcelNumber, municipality string) (*models.ParcelInfo, error)
}

// LRUnitLookup is the lookup surface a land registry unit batch needs.
type LRUnitLookup interface {
	GetLRUnit(ctx context.Context, lrUnitNumber string, mainBookID int64, historical bool) (*models.LandRegistryUnitDetailed, error)
}

// ParcelResult is the outcome of one parcel lookup within a batch.
type ParcelResult struct {
	Input  ParcelInput
	Parcel *models.ParcelInfo
	Err    error
}

// OK reports whether the lookup succeeded.
func (r ParcelResult) OK() bool {
	return r.Err == nil
}

// ErrorKind returns the error kind as a string, or "unexpected_error" for
// failures outside the registry error taxonomy.
func (r ParcelResult) ErrorKind() string {
	return errorKind(r.Err)
}

// LRUnitResult is the outcome of one land registry unit lookup within a batch.
type LRUnitResult struct {
	Input LRUnitInput
	Unit  *models.LandRegistryUnitDetailed
	Err   error
}

func (r LRUnitResult) OK() bool {
	return r.Err == nil
}

func (r LRUnitResult) ErrorKind() string {
	return errorKind(r.Err)
}

func errorKind(err error) string {
	if err == nil {
		return ""
	}
	if kind := apierrors.KindOf(err); kind != "" {
		return string(kind)
	}
	return "unexpected_error"
}

// ParcelSummary aggregates a finished parcel batch.
type ParcelSummary struct {
	Total      int
	Successful int
	Failed     int
	Results    []ParcelResult
}

// SuccessRate is the share of successful lookups, in percent.
func (s ParcelSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.Total) * 100
}

// LRUnitSummary aggregates a finished land registry unit batch.
type LRUnitSummary struct {
	Total      int
	Successful int
	Failed     int
	Results    []LRUnitResult
}

func (s LRUnitSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.Total) * 100
}

// ProcessParcels runs the parcel lookups one by one, collecting per-item
// results. With stopOnError set, the first failure ends the run and the
// summary covers only the items attempted so far; otherwise every item is
// attempted. Context cancellation always ends the run.
func ProcessParcels(ctx context.Context, lookup ParcelLookup, inputs []ParcelInput, stopOnError bool, log *logger.Logger) (ParcelSummary, error) {
	summary := ParcelSummary{Results: make([]ParcelResult, 0, len(inputs))}

	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		log.Debug("processing parcel", map[string]interface{}{
			"item":   i + 1,
			"of":     len(inputs),
			"parcel": in.String(),
		})

		var parcel *models.ParcelInfo
		var err error
		if in.IsDirectID() {
			parcel, err = lookup.GetParcelInfo(ctx, in.ParcelID)
		} else {
			parcel, err = lookup.LookupParcel(ctx, in.ParcelNumber, in.Municipality)
		}

		summary.Total++
		summary.Results = append(summary.Results, ParcelResult{Input: in, Parcel: parcel, Err: err})
		if err != nil {
			summary.Failed++
			if stopOnError {
				return summary, err
			}
			continue
		}
		summary.Successful++
	}

	return summary, nil
}

// ProcessLRUnits runs the land registry unit lookups one by one, with the
// same stop and cancellation semantics as ProcessParcels.
func ProcessLRUnits(ctx context.Context, lookup LRUnitLookup, inputs []LRUnitInput, stopOnError bool, log *logger.Logger) (LRUnitSummary, error) {
	summary := LRUnitSummary{Results: make([]LRUnitResult, 0, len(inputs))}

	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		log.Debug("processing land registry unit", map[string]interface{}{
			"item":       i + 1,
			"of":         len(inputs),
			"lrUnit":     in.UnitNumber,
			"mainBookId": in.MainBookID,
		})

		unit, err := lookup.GetLRUnit(ctx, in.UnitNumber, in.MainBookID, false)

		summary.Total++
		summary.Results = append(summary.Results, LRUnitResult{Input: in, Unit: unit, Err: err})
		if err != nil {
			summary.Failed++
			if stopOnError {
				return summary, err
			}
			continue
		}
		summary.Successful++
	}

	return summary, nil
}
