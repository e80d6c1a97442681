package geo

import (
	"strings"

	"experts-geo/core/errs"
	"experts-geo/core/geostore"
	"experts-geo/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for location data.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the location routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/api")
	group.Get("/works", h.HandleWorks)
	group.Get("/grants", h.HandleGrants)
	group.Get("/combined", h.HandleCombined)
	group.Get("/redis/worksQuery", h.HandleWorksQuery)
	group.Get("/redis/grantsQuery", h.HandleGrantsQuery)
	group.Get("/index", h.HandleIndex)
	group.Get("/cache/:type/metadata", h.HandleCacheMetadata)
	group.Get("/status", h.HandleStatus)
}

// fail logs err and writes the error body. Missing data maps to 404.
func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	l := logger.WithRayID(h.logger, c)
	status := fiber.StatusInternalServerError
	if errs.KindOf(err) == errs.KindNotFound {
		status = fiber.StatusNotFound
		l.Warn(msg, zap.Error(err))
	} else {
		l.Error(msg, zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   msg,
		"details": err.Error(),
	})
}

// HandleWorks returns the work locations.
// @Summary Work locations
// @Description GeoJSON FeatureCollection of every location referenced by works.
// @Tags locations
// @Produce json
// @Success 200 {object} map[string]interface{} "FeatureCollection with metadata"
// @Failure 404 {object} map[string]string "No cached data"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /api/works [get]
func (h *Handler) HandleWorks(c *fiber.Ctx) error {
	return h.collection(geostore.SourceWorks)(c)
}

// HandleGrants returns the grant locations.
// @Summary Grant locations
// @Description GeoJSON FeatureCollection of every location referenced by grants.
// @Tags locations
// @Produce json
// @Success 200 {object} map[string]interface{} "FeatureCollection with metadata"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /api/grants [get]
func (h *Handler) HandleGrants(c *fiber.Ctx) error {
	return h.collection(geostore.SourceGrants)(c)
}

// HandleCombined returns work and grant locations tagged with source_type.
// @Summary Combined locations
// @Description Union of work and grant locations; each feature carries a source_type property.
// @Tags locations
// @Produce json
// @Success 200 {object} map[string]interface{} "FeatureCollection with metadata"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /api/combined [get]
func (h *Handler) HandleCombined(c *fiber.Ctx) error {
	return h.collection(geostore.SourceCombined)(c)
}

func (h *Handler) collection(src geostore.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fc, err := h.service.Collection(c.UserContext(), src)
		if err != nil {
			return h.fail(c, "Failed to fetch "+string(src)+" locations", err)
		}
		return c.JSON(fc)
	}
}

// HandleWorksQuery returns cached work locations of one session.
// @Summary Cached work locations
// @Description Work location features from the Redis cache. Defaults to the most recent session.
// @Tags cache
// @Produce json
// @Param session query string false "Cache session id"
// @Success 200 {object} map[string]interface{} "FeatureCollection with metadata"
// @Failure 404 {object} map[string]string "No cache session"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /api/redis/worksQuery [get]
func (h *Handler) HandleWorksQuery(c *fiber.Ctx) error {
	return h.cached(geostore.SourceWorks)(c)
}

// HandleGrantsQuery returns cached grant locations of one session.
// @Summary Cached grant locations
// @Description Grant location features from the Redis cache. Defaults to the most recent session.
// @Tags cache
// @Produce json
// @Param session query string false "Cache session id"
// @Success 200 {object} map[string]interface{} "FeatureCollection with metadata"
// @Failure 404 {object} map[string]string "No cache session"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /api/redis/grantsQuery [get]
func (h *Handler) HandleGrantsQuery(c *fiber.Ctx) error {
	return h.cached(geostore.SourceGrants)(c)
}

func (h *Handler) cached(src geostore.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fc, err := h.service.CachedCollection(c.UserContext(), src, strings.TrimSpace(c.Query("session")))
		if err != nil {
			return h.fail(c, "Failed to read cached "+string(src), err)
		}
		return c.JSON(fc)
	}
}

// HandleIndex returns the relational index.
// @Summary Relational index
// @Description Locations, works, grants and experts linked in every direction, optionally filtered by keyword.
// @Tags index
// @Produce json
// @Param keyword query string false "Keyword; quoted phrases match verbatim"
// @Param source query string false "combined, works or grants; omit for all three"
// @Success 200 {object} index.Result "Index"
// @Failure 400 {object} map[string]string "Unknown source"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /api/index [get]
func (h *Handler) HandleIndex(c *fiber.Ctx) error {
	source := strings.ToLower(strings.TrimSpace(c.Query("source")))
	switch source {
	case "", string(geostore.SourceCombined), string(geostore.SourceWorks), string(geostore.SourceGrants):
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid source",
			"details": "source must be one of combined, works, grants",
		})
	}

	res, err := h.service.Index(c.UserContext(), c.Query("keyword"))
	if err != nil {
		return h.fail(c, "Failed to build index", err)
	}

	switch geostore.Source(source) {
	case geostore.SourceCombined:
		return c.JSON(res.Combined)
	case geostore.SourceWorks:
		return c.JSON(res.Works)
	case geostore.SourceGrants:
		return c.JSON(res.Grants)
	}
	return c.JSON(res)
}

// HandleCacheMetadata returns the metadata and session log of a cached type.
// @Summary Cache metadata
// @Description Metadata and append-only session log of one cached entity type.
// @Tags cache
// @Produce json
// @Param type path string true "Cache type (expert, work, grant, worksFeature, grantsFeature)"
// @Success 200 {object} CacheStatus "Cache status"
// @Failure 404 {object} map[string]string "Unknown type"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /api/cache/{type}/metadata [get]
func (h *Handler) HandleCacheMetadata(c *fiber.Ctx) error {
	st, err := h.service.CacheStatus(c.UserContext(), c.Params("type"))
	if err != nil {
		return h.fail(c, "Failed to read cache metadata", err)
	}
	return c.JSON(st)
}

// HandleStatus reports the data source and every cache.
// @Summary Service status
// @Tags status
// @Produce json
// @Success 200 {object} map[string]interface{} "Status"
// @Router /api/status [get]
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status(c.UserContext()))
}
