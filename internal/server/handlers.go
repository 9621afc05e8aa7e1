package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/katastar/katastar/internal/middleware"
)

// Handler serves the registry API surface from a FixtureStore. Response
// shapes, including the 404 bodies and the one-element array on the unit
// endpoint, mirror the real registry.
type Handler struct {
	store *FixtureStore
}

// NewHandler creates a Handler backed by the given store.
func NewHandler(store *FixtureStore) *Handler {
	return &Handler{store: store}
}

// Root handles GET / with service info and dataset counts.
func (h *Handler) Root(c *gin.Context) {
	offices, municipalities, parcelSets, lrUnits := h.store.Counts()

	c.JSON(http.StatusOK, gin.H{
		"service": "Mock Croatian Cadastral API",
		"status":  "running",
		"endpoints": gin.H{
			"offices":        "/search-cad-parcels/offices",
			"municipalities": "/search-cad-parcels/municipalities",
			"parcel_search":  "/search-cad-parcels/parcel-numbers",
			"parcel_info":    "/cad/parcel-info",
			"lr_unit":        "/lr/lr-unit",
		},
		"data_loaded": gin.H{
			"offices":        offices,
			"municipalities": municipalities,
			"parcel_sets":    parcelSets,
			"lr_units":       lrUnits,
		},
	})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListOffices handles GET /search-cad-parcels/offices.
func (h *Handler) ListOffices(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Offices())
}

// MunicipalitySearchRequest holds the municipality search query parameters,
// all optional.
type MunicipalitySearchRequest struct {
	Search       string `form:"search"`
	OfficeID     string `form:"officeId"`
	DepartmentID string `form:"departmentId"`
}

// SearchMunicipalities handles GET /search-cad-parcels/municipalities.
func (h *Handler) SearchMunicipalities(c *gin.Context) {
	var req MunicipalitySearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid query parameters"})
		return
	}

	c.JSON(http.StatusOK, h.store.SearchMunicipalities(req.Search, req.OfficeID, req.DepartmentID))
}

// ParcelSearchRequest holds the parcel-number search query parameters.
type ParcelSearchRequest struct {
	Search             string `form:"search" binding:"required"`
	MunicipalityRegNum string `form:"municipalityRegNum" binding:"required"`
}

// SearchParcelNumbers handles GET /search-cad-parcels/parcel-numbers.
func (h *Handler) SearchParcelNumbers(c *gin.Context) {
	var req ParcelSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "search and municipalityRegNum are required"})
		return
	}

	c.JSON(http.StatusOK, h.store.SearchParcels(req.Search, req.MunicipalityRegNum))
}

// ParcelInfoRequest holds the parcel-info query parameters.
type ParcelInfoRequest struct {
	ParcelID string `form:"parcelId" binding:"required"`
}

// GetParcelInfo handles GET /cad/parcel-info.
func (h *Handler) GetParcelInfo(c *gin.Context) {
	var req ParcelInfoRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "parcelId is required"})
		return
	}

	parcelID, err := strconv.ParseInt(req.ParcelID, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "parcelId must be numeric"})
		return
	}

	raw, ok := h.store.ParcelByID(parcelID)
	if !ok {
		if log := middleware.GetLogger(c); log != nil {
			log.Debug("parcel not found", map[string]interface{}{"parcelId": req.ParcelID})
		}
		c.JSON(http.StatusNotFound, gin.H{
			"error":    "Parcel not found",
			"parcelId": req.ParcelID,
		})
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}

// LRUnitRequest holds the lr-unit query parameters.
type LRUnitRequest struct {
	LRUnitNumber       string `form:"lrUnitNumber" binding:"required"`
	MainBookID         int64  `form:"mainBookId" binding:"required"`
	HistoricalOverview bool   `form:"historicalOverview"`
}

// GetLRUnit handles GET /lr/lr-unit. The unit is returned wrapped in a
// one-element array, matching the real registry.
func (h *Handler) GetLRUnit(c *gin.Context) {
	var req LRUnitRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "lrUnitNumber and mainBookId are required"})
		return
	}

	raw, ok := h.store.LRUnit(req.LRUnitNumber, req.MainBookID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":        "Land registry unit not found",
			"lrUnitNumber": req.LRUnitNumber,
			"mainBookId":   req.MainBookID,
		})
		return
	}

	body := wrapInArray(raw)
	c.Data(http.StatusOK, "application/json", body)
}

// wrapInArray wraps a raw JSON object in a one-element array unless the
// fixture is already stored in array form.
func wrapInArray(raw []byte) []byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return raw
		default:
			out := make([]byte, 0, len(raw)+2)
			out = append(out, '[')
			out = append(out, raw...)
			return append(out, ']')
		}
	}
	return raw
}
