package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katastar/katastar/internal/config"
	apierrors "github.com/katastar/katastar/internal/errors"
	"github.com/katastar/katastar/internal/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(config.ClientConfig{
		BaseURL:    srv.URL,
		RateLimit:  0,
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	}, logger.Nop())
	c.backoffUnit = time.Millisecond
	return c, srv
}

func TestListOffices(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search-cad-parcels/offices", r.URL.Path)
		w.Write([]byte(`[{"id": "114", "name": "Područni ured za katastar Zadar"}]`))
	}))

	offices, err := c.ListOffices(context.Background())
	require.NoError(t, err)
	require.Len(t, offices, 1)
	assert.Equal(t, "114", offices[0].ID)
}

func TestListOfficesEmptyBodyIsProtocolViolation(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	_, err := c.ListOffices(context.Background())
	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindInvalidResponse))
}

func TestSearchMunicipalitiesParams(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search-cad-parcels/municipalities", r.URL.Path)
		assert.Equal(t, "savar", r.URL.Query().Get("search"))
		assert.Equal(t, "114", r.URL.Query().Get("officeId"))
		assert.Equal(t, "", r.URL.Query().Get("departmentId"))
		w.Write([]byte(`[{"key1": "2387", "value1": "334979 SAVAR", "key2": "334979", "value2": "114"}]`))
	}))

	results, err := c.SearchMunicipalities(context.Background(), "savar", "114", "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "SAVAR", results[0].MunicipalityName())
}

// Empty search results are a successful empty list, not an error.
func TestSearchEmptyResults(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	munis, err := c.SearchMunicipalities(context.Background(), "nepostojeća", "", "")
	require.NoError(t, err)
	assert.Empty(t, munis)

	parcels, err := c.SearchParcels(context.Background(), "999999", "334979")
	require.NoError(t, err)
	assert.Empty(t, parcels)
}

func TestGetParcelInfoNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Parcel not found", "parcelId": "1"}`))
	}))

	_, err := c.GetParcelInfo(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindParcelNotFound))
}

func TestGetLRUnitNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.GetLRUnit(context.Background(), "769", 99999, false)
	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindLRUnitNotFound))
}

func TestGetLRUnitParams(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lr/lr-unit", r.URL.Path)
		assert.Equal(t, "769", r.URL.Query().Get("lrUnitNumber"))
		assert.Equal(t, "21277", r.URL.Query().Get("mainBookId"))
		assert.Equal(t, "false", r.URL.Query().Get("historicalOverview"))
		w.Write([]byte(`[{"lrUnitId": 1, "lrUnitNumber": "769", "mainBookId": 21277}]`))
	}))

	unit, err := c.GetLRUnit(context.Background(), "769", 21277, false)
	require.NoError(t, err)
	assert.Equal(t, "769", unit.LRUnitNumber)
}

func TestRetryOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[{"id": "114", "name": "Zadar"}]`))
	}))

	offices, err := c.ListOffices(context.Background())
	require.NoError(t, err)
	assert.Len(t, offices, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryExhaustionOnServerError(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.ListOffices(context.Background())
	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindServerError))
	// Initial attempt plus MaxRetries retries.
	assert.Equal(t, int32(4), calls.Load())
}

func TestRateLimitSpacing(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": "114", "name": "Zadar"}]`))
	}))
	c.rateLimit = 50 * time.Millisecond

	start := time.Now()
	_, err := c.ListOffices(context.Background())
	require.NoError(t, err)
	_, err = c.ListOffices(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestConnectionErrorKind(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := c.ListOffices(context.Background())
	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindConnection))
}

func TestContextCancellation(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	c.rateLimit = time.Hour // force the rate-limit sleep path

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _ = c.SearchParcels(context.Background(), "1", "334979") // prime lastRequest
	_, err := c.SearchParcels(ctx, "1", "334979")
	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindTimeout))
}

func TestGetParcelByNumberExactMatch(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search-cad-parcels/parcel-numbers":
			// Prefix search returns the exact parcel and a longer sibling.
			w.Write([]byte(`[
				{"key1": "2", "value1": "279/61"},
				{"key1": "1", "value1": "279/6"}
			]`))
		case "/cad/parcel-info":
			assert.Equal(t, "1", r.URL.Query().Get("parcelId"))
			w.Write([]byte(`{"parcelId": 1, "parcelNumber": "279/6", "area": "1890"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	parcel, err := c.GetParcelByNumber(context.Background(), "279/6", "334979", true)
	require.NoError(t, err)
	assert.Equal(t, "279/6", parcel.ParcelNumber)
	assert.Equal(t, 1890, parcel.AreaM2)
}

func TestGetParcelByNumberNoExactMatch(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"key1": "2", "value1": "279/61"}]`))
	}))

	_, err := c.GetParcelByNumber(context.Background(), "279/6", "334979", true)
	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindParcelNotFound))
}

func TestGetLRUnitFromParcel(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search-cad-parcels/parcel-numbers":
			w.Write([]byte(`[{"key1": "1", "value1": "279/6"}]`))
		case "/cad/parcel-info":
			w.Write([]byte(`{
				"parcelId": 1, "parcelNumber": "279/6", "area": "1890",
				"lrUnit": {"lrUnitId": 9, "lrUnitNumber": "769", "mainBookId": 21277}
			}`))
		case "/lr/lr-unit":
			assert.Equal(t, "769", r.URL.Query().Get("lrUnitNumber"))
			assert.Equal(t, "21277", r.URL.Query().Get("mainBookId"))
			w.Write([]byte(`[{"lrUnitId": 9, "lrUnitNumber": "769", "mainBookId": 21277}]`))
		}
	}))

	unit, err := c.GetLRUnitFromParcel(context.Background(), "279/6", "334979")
	require.NoError(t, err)
	assert.Equal(t, int64(21277), unit.MainBookID)
}

func TestGetLRUnitFromParcelWithoutUnitReference(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search-cad-parcels/parcel-numbers":
			w.Write([]byte(`[{"key1": "1", "value1": "279/6"}]`))
		case "/cad/parcel-info":
			w.Write([]byte(`{"parcelId": 1, "parcelNumber": "279/6", "area": "1890"}`))
		}
	}))

	_, err := c.GetLRUnitFromParcel(context.Background(), "279/6", "334979")
	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindLRUnitNotFound))
}
