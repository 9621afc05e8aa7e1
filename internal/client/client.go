// Package client implements the HTTP client for the Croatian land
// administration registry (Uređena zemlja). All requests are read-only GETs;
// the client adds rate limiting, retry with backoff, and mapping of transport
// failures onto the shared error taxonomy.
package client

import (
	"context"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/katastar/katastar/internal/config"
	apierrors "github.com/katastar/katastar/internal/errors"
	"github.com/katastar/katastar/internal/logger"
	"github.com/katastar/katastar/internal/models"
)

const (
	officesEndpoint        = "/search-cad-parcels/offices"
	municipalitiesEndpoint = "/search-cad-parcels/municipalities"
	parcelNumbersEndpoint  = "/search-cad-parcels/parcel-numbers"
	parcelInfoEndpoint     = "/cad/parcel-info"
	lrUnitEndpoint         = "/lr/lr-unit"
)

// Client talks to the registry API. It is safe for concurrent use; requests
// are serialized so the configured minimum delay between requests holds
// across goroutines.
type Client struct {
	httpClient *http.Client
	baseURL    string
	rateLimit  time.Duration
	maxRetries int
	log        *logger.Logger

	// backoffUnit scales retry sleeps; tests shrink it.
	backoffUnit time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// New creates a registry client from the client configuration.
func New(cfg config.ClientConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		rateLimit:   cfg.RateLimit,
		maxRetries:  cfg.MaxRetries,
		log:         log,
		backoffUnit: time.Second,
	}
}

// ListOffices lists all regional cadastral offices. The registry returns the
// complete list (21 offices) without pagination; an empty body is a protocol
// violation, not an empty result.
func (c *Client) ListOffices(ctx context.Context) ([]models.CadastralOffice, error) {
	body, err := c.get(ctx, officesEndpoint, nil, apierrors.KindServerError)
	if err != nil {
		return nil, err
	}

	offices, err := models.ParseOffices(body)
	if err != nil {
		return nil, err
	}
	if len(offices) == 0 {
		return nil, apierrors.New(apierrors.KindInvalidResponse, map[string]interface{}{
			"endpoint": officesEndpoint,
			"reason":   "empty_response",
		})
	}
	return offices, nil
}

// SearchMunicipalities searches cadastral municipalities by name or
// registration code, optionally filtered by office and department. An empty
// result list is a successful search with no matches.
func (c *Client) SearchMunicipalities(ctx context.Context, term, officeID, departmentID string) ([]models.MunicipalitySearchResult, error) {
	params := url.Values{}
	if term != "" {
		params.Set("search", term)
	}
	if officeID != "" {
		params.Set("officeId", officeID)
	}
	if departmentID != "" {
		params.Set("departmentId", departmentID)
	}

	body, err := c.get(ctx, municipalitiesEndpoint, params, apierrors.KindServerError)
	if err != nil {
		return nil, err
	}
	return models.ParseMunicipalities(body)
}

// SearchParcels searches parcel numbers within a municipality. The registry
// matches by prefix, so "114" also returns "1140/1". An empty result list is
// a successful search with no matches.
func (c *Client) SearchParcels(ctx context.Context, parcelNumber, municipalityRegNum string) ([]models.ParcelSearchResult, error) {
	params := url.Values{}
	params.Set("search", parcelNumber)
	params.Set("municipalityRegNum", municipalityRegNum)

	body, err := c.get(ctx, parcelNumbersEndpoint, params, apierrors.KindServerError)
	if err != nil {
		return nil, err
	}
	return models.ParseParcelSearchResults(body)
}

// GetParcelInfo retrieves the full parcel record by parcel ID.
func (c *Client) GetParcelInfo(ctx context.Context, parcelID string) (*models.ParcelInfo, error) {
	params := url.Values{}
	params.Set("parcelId", parcelID)

	body, err := c.get(ctx, parcelInfoEndpoint, params, apierrors.KindParcelNotFound)
	if err != nil {
		return nil, err
	}
	return models.ParseParcelInfo(body)
}

// GetParcelByNumber searches for a parcel number and retrieves its full
// record in one call. With exactMatch the parcel number must match a search
// result exactly; otherwise the first prefix match wins.
func (c *Client) GetParcelByNumber(ctx context.Context, parcelNumber, municipalityRegNum string, exactMatch bool) (*models.ParcelInfo, error) {
	results, err := c.SearchParcels(ctx, parcelNumber, municipalityRegNum)
	if err != nil {
		return nil, err
	}

	notFound := func() error {
		return apierrors.New(apierrors.KindParcelNotFound, map[string]interface{}{
			"parcelNumber":       parcelNumber,
			"municipalityRegNum": municipalityRegNum,
		})
	}

	if len(results) == 0 {
		return nil, notFound()
	}
	if exactMatch {
		for _, r := range results {
			if r.ParcelNumber == parcelNumber {
				return c.GetParcelInfo(ctx, r.ParcelID)
			}
		}
		return nil, notFound()
	}
	return c.GetParcelInfo(ctx, results[0].ParcelID)
}

// GetLRUnit retrieves a land registry unit by unit number and main book.
// historical requests the historical overview alongside the current state.
func (c *Client) GetLRUnit(ctx context.Context, lrUnitNumber string, mainBookID int64, historical bool) (*models.LandRegistryUnitDetailed, error) {
	params := url.Values{}
	params.Set("lrUnitNumber", lrUnitNumber)
	params.Set("mainBookId", strconv.FormatInt(mainBookID, 10))
	params.Set("historicalOverview", strconv.FormatBool(historical))

	body, err := c.get(ctx, lrUnitEndpoint, params, apierrors.KindLRUnitNotFound)
	if err != nil {
		return nil, err
	}
	return models.ParseLandRegistryUnit(body)
}

// GetLRUnitFromParcel resolves a parcel number to its land registry unit in
// two hops: parcel lookup, then unit lookup via the parcel's unit reference.
// The two failure modes stay distinguishable: a missing parcel surfaces as
// parcel_not_found, a parcel without a registered unit as lr_unit_not_found.
func (c *Client) GetLRUnitFromParcel(ctx context.Context, parcelNumber, municipalityRegNum string) (*models.LandRegistryUnitDetailed, error) {
	parcel, err := c.GetParcelByNumber(ctx, parcelNumber, municipalityRegNum, true)
	if err != nil {
		return nil, err
	}

	if parcel.LRUnit == nil || parcel.LRUnit.MainBookID == 0 {
		return nil, apierrors.New(apierrors.KindLRUnitNotFound, map[string]interface{}{
			"parcelNumber": parcelNumber,
			"reason":       "parcel_has_no_lr_unit",
		})
	}
	return c.GetLRUnit(ctx, parcel.LRUnit.LRUnitNumber, parcel.LRUnit.MainBookID, false)
}

// get performs one rate-limited GET with retry. notFound is the error kind a
// 404 maps to for this endpoint.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, notFound apierrors.Kind) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for attempt := 0; ; attempt++ {
		if err := c.waitForRateLimit(ctx); err != nil {
			return nil, err
		}

		body, retryAfter, err := c.doRequest(ctx, endpoint, params, notFound, attempt)
		if err == nil {
			return body, nil
		}
		if retryAfter <= 0 || attempt >= c.maxRetries {
			if retryAfter > 0 {
				c.log.Warn("giving up after retries", map[string]interface{}{
					"endpoint": endpoint,
					"attempts": attempt + 1,
				})
			}
			return nil, err
		}

		c.log.Debug("retrying request", map[string]interface{}{
			"endpoint": endpoint,
			"attempt":  attempt + 1,
			"sleep":    retryAfter.String(),
		})
		if err := sleepCtx(ctx, retryAfter); err != nil {
			return nil, err
		}
	}
}

// doRequest performs a single GET. A positive retryAfter alongside the error
// marks it as retryable (rate limit or server error); the sleep grows
// exponentially with the attempt number, steeper for rate limiting.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, notFound apierrors.Kind, attempt int) (body []byte, retryAfter time.Duration, err error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, apierrors.Wrap(apierrors.KindInternal, err, map[string]interface{}{
			"endpoint": endpoint,
		})
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, transportError(endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, c.backoff(2, attempt), apierrors.New(apierrors.KindRateLimit, map[string]interface{}{
			"endpoint": endpoint,
		})
	case resp.StatusCode >= 500:
		return nil, c.backoff(1.5, attempt), apierrors.New(apierrors.KindServerError, map[string]interface{}{
			"endpoint":    endpoint,
			"status_code": resp.StatusCode,
		})
	case resp.StatusCode == http.StatusNotFound:
		return nil, 0, apierrors.New(notFound, map[string]interface{}{
			"endpoint": endpoint,
		})
	case resp.StatusCode != http.StatusOK:
		return nil, 0, apierrors.New(apierrors.KindServerError, map[string]interface{}{
			"endpoint":    endpoint,
			"status_code": resp.StatusCode,
		})
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, transportError(endpoint, err)
	}
	return data, 0, nil
}

// backoff returns the sleep before the next attempt: base^attempt units.
func (c *Client) backoff(base float64, attempt int) time.Duration {
	return time.Duration(math.Pow(base, float64(attempt)) * float64(c.backoffUnit))
}

// waitForRateLimit blocks until the minimum inter-request delay has elapsed.
func (c *Client) waitForRateLimit(ctx context.Context) error {
	elapsed := time.Since(c.lastRequest)
	if elapsed < c.rateLimit {
		if err := sleepCtx(ctx, c.rateLimit-elapsed); err != nil {
			return err
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return apierrors.Wrap(apierrors.KindTimeout, ctx.Err(), nil)
	case <-timer.C:
		return nil
	}
}

// transportError classifies a transport failure as timeout or connection.
func transportError(endpoint string, err error) error {
	details := map[string]interface{}{"endpoint": endpoint}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apierrors.Wrap(apierrors.KindTimeout, err, details)
	}
	return apierrors.Wrap(apierrors.KindConnection, err, details)
}
