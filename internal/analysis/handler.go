package analysis

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"flahasoil/internal/analysis/export"
	"flahasoil/internal/validation"
)

// DefaultForecastDays is the forecast length when the days query parameter is omitted.
const DefaultForecastDays = 5

// Handler handles HTTP requests for soil analysis operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new analysis handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers analysis routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.health)

	soil := router.Group("/soil")
	{
		soil.POST("/analyses", h.analyze)
		soil.GET("/analyses", h.listAnalyses)
		soil.GET("/analyses/:id", h.getAnalysis)
		soil.GET("/analyses/:id/export", h.exportAnalysis)
		soil.GET("/analyses/:id/recommendations", h.irrigationHistory)

		soil.POST("/curve", h.curve)
		soil.POST("/profile", h.profile)
		soil.POST("/compare", h.compare)
	}

	router.GET("/crops", h.listCrops)
	router.POST("/irrigation/recommendations", h.recommendIrrigation)

	salt := router.Group("/salt")
	{
		salt.POST("/leaching", h.leaching)
		salt.POST("/drainage", h.drainage)
		salt.POST("/balance", h.saltBalance)
	}

	weather := router.Group("/weather")
	{
		weather.GET("/current", h.currentWeather)
		weather.GET("/forecast", h.forecast)
		weather.GET("/et0", h.et0)
	}
}

// health handles GET /api/v1/health
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// =====================================================
// Soil Endpoints
// =====================================================

// analyze handles POST /api/v1/soil/analyses
func (h *Handler) analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Analyze(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Failed to analyze soil sample", err)
		return
	}

	status := http.StatusOK
	if result.Stored {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// listAnalyses handles GET /api/v1/soil/analyses
func (h *Handler) listAnalyses(c *gin.Context) {
	analyses, err := h.service.ListAnalyses(c.Request.Context(), h.getIntParam(c, "limit", DefaultListLimit))
	if err != nil {
		h.respondError(c, "Failed to list analyses", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  analyses,
		"count": len(analyses),
	})
}

// getAnalysis handles GET /api/v1/soil/analyses/:id
func (h *Handler) getAnalysis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis ID"})
		return
	}

	result, err := h.service.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Failed to get analysis", err, zap.String("analysis_id", id.String()))
		return
	}

	c.JSON(http.StatusOK, result)
}

// exportAnalysis handles GET /api/v1/soil/analyses/:id/export
func (h *Handler) exportAnalysis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis ID"})
		return
	}

	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatCSV)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid export format"})
		return
	}

	doc, err := h.service.ExportDocument(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Failed to export analysis", err, zap.String("analysis_id", id.String()))
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, *doc); err != nil {
		h.respondError(c, "Failed to render export", err, zap.String("analysis_id", id.String()))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName(id.String())))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// irrigationHistory handles GET /api/v1/soil/analyses/:id/recommendations
func (h *Handler) irrigationHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis ID"})
		return
	}

	records, err := h.service.IrrigationHistory(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Failed to list irrigation recommendations", err, zap.String("analysis_id", id.String()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  records,
		"count": len(records),
	})
}

// curve handles POST /api/v1/soil/curve
func (h *Handler) curve(c *gin.Context) {
	var req CurveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Curve(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Failed to generate curve", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// profile handles POST /api/v1/soil/profile
func (h *Handler) profile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Profile(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Failed to build profile", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// compare handles POST /api/v1/soil/compare
func (h *Handler) compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Compare(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Failed to compare analyses", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// =====================================================
// Irrigation Endpoints
// =====================================================

// listCrops handles GET /api/v1/crops
func (h *Handler) listCrops(c *gin.Context) {
	crops, err := h.service.ListCrops(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to list crops", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  crops,
		"count": len(crops),
	})
}

// recommendIrrigation handles POST /api/v1/irrigation/recommendations
func (h *Handler) recommendIrrigation(c *gin.Context) {
	var req IrrigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.RecommendIrrigation(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Failed to compute irrigation recommendation", err, zap.String("crop_id", req.CropID))
		return
	}

	c.JSON(http.StatusCreated, result)
}

// =====================================================
// Salt Management Endpoints
// =====================================================

// leaching handles POST /api/v1/salt/leaching
func (h *Handler) leaching(c *gin.Context) {
	var req LeachingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Leaching(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Failed to calculate leaching requirement", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// drainage handles POST /api/v1/salt/drainage
func (h *Handler) drainage(c *gin.Context) {
	var req DrainageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Drainage(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Failed to assess drainage", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// saltBalance handles POST /api/v1/salt/balance
func (h *Handler) saltBalance(c *gin.Context) {
	var req BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.SaltBalance(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Failed to calculate salt balance", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// =====================================================
// Weather Endpoints
// =====================================================

// currentWeather handles GET /api/v1/weather/current
func (h *Handler) currentWeather(c *gin.Context) {
	lat, lon, err := h.getCoordinates(c)
	if err != nil {
		h.respondError(c, "Invalid coordinates", err)
		return
	}

	result, err := h.service.CurrentWeather(c.Request.Context(), lat, lon, c.Query("provider"))
	if err != nil {
		h.respondError(c, "Failed to get current weather", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// forecast handles GET /api/v1/weather/forecast
func (h *Handler) forecast(c *gin.Context) {
	lat, lon, err := h.getCoordinates(c)
	if err != nil {
		h.respondError(c, "Invalid coordinates", err)
		return
	}

	days := h.getIntParam(c, "days", DefaultForecastDays)
	result, err := h.service.Forecast(c.Request.Context(), lat, lon, days, c.Query("provider"))
	if err != nil {
		h.respondError(c, "Failed to get forecast", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// et0 handles GET /api/v1/weather/et0
func (h *Handler) et0(c *gin.Context) {
	lat, lon, err := h.getCoordinates(c)
	if err != nil {
		h.respondError(c, "Invalid coordinates", err)
		return
	}

	result, err := h.service.ET0(c.Request.Context(), lat, lon, c.Query("provider"))
	if err != nil {
		h.respondError(c, "Failed to get ET0", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// =====================================================
// Helpers
// =====================================================

// respondError maps service errors to status codes. Only unexpected errors are logged.
func (h *Handler) respondError(c *gin.Context, msg string, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, validation.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   err.Error(),
			"details": validation.Fields(err),
		})
	case errors.Is(err, validation.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrHistoryUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) getIntParam(c *gin.Context, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getCoordinates reads the required lat and lon query parameters
func (h *Handler) getCoordinates(c *gin.Context) (float64, float64, error) {
	var v validation.Collector
	parse := func(key string) float64 {
		raw := c.Query(key)
		if raw == "" {
			v.Add(key, "REQUIRED", "is required")
			return 0
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			v.Add(key, "INVALID_NUMBER", "must be a number, got %q", raw)
		}
		return f
	}
	lat := parse("lat")
	lon := parse("lon")
	return lat, lon, v.Err()
}
