package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ainur/freight-quotes/internal/excel"
	"github.com/ainur/freight-quotes/internal/http/middleware"
	"github.com/ainur/freight-quotes/internal/model"
	"github.com/ainur/freight-quotes/internal/pdf"
	"github.com/ainur/freight-quotes/internal/service"
)

type Handler struct {
	routes        *service.RouteService
	costs         *service.CostService
	settings      *service.SettingsService
	offers        *service.OfferService
	optimizer     *service.Optimizer
	pdf           *pdf.Generator
	excel         *excel.Generator
	defaultMargin float64
	log           zerolog.Logger
}

func NewHandler(
	routes *service.RouteService,
	costs *service.CostService,
	settings *service.SettingsService,
	offers *service.OfferService,
	optimizer *service.Optimizer,
	pdfGen *pdf.Generator,
	excelGen *excel.Generator,
	defaultMargin float64,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		routes:        routes,
		costs:         costs,
		settings:      settings,
		offers:        offers,
		optimizer:     optimizer,
		pdf:           pdfGen,
		excel:         excelGen,
		defaultMargin: defaultMargin,
		log:           log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/routes", h.calculateRoute)
	protected.GET("/routes/:id/optimization", h.routeOptimization)

	protected.GET("/cost-settings", h.listCostSettings)
	protected.POST("/cost-settings", h.updateCostSettings)

	protected.POST("/offers", h.createOffer)
	protected.GET("/offers", h.listOffers)
	protected.GET("/offers/export", h.exportOffers)
	protected.GET("/offers/:id", h.getOffer)
	protected.PATCH("/offers/:id", h.updateOffer)
	protected.POST("/offers/:id/status", h.updateOfferStatus)
	protected.DELETE("/offers/:id", h.deleteOffer)
	protected.GET("/offers/:id/document", h.offerDocument)
}

type locationRequest struct {
	Address   string  `json:"address" binding:"required"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

type cargoRequest struct {
	Type                string   `json:"type"`
	WeightKg            float64  `json:"weight"`
	VolumeM3            float64  `json:"volume"`
	Value               float64  `json:"value"`
	HandlingFactor      float64  `json:"handling_factor"`
	SpecialRequirements []string `json:"special_requirements"`
}

type calculateRouteRequest struct {
	Origin       locationRequest `json:"origin" binding:"required"`
	Destination  locationRequest `json:"destination" binding:"required"`
	PickupTime   string          `json:"pickup_time" binding:"required"`
	DeliveryTime string          `json:"delivery_time" binding:"required"`
	Cargo        *cargoRequest   `json:"cargo"`
}

func (h *Handler) calculateRoute(c *gin.Context) {
	var req calculateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pickup, err := parseTimestamp(req.PickupTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pickup_time: must be RFC 3339 with offset"})
		return
	}
	delivery, err := parseTimestamp(req.DeliveryTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delivery_time: must be RFC 3339 with offset"})
		return
	}

	input := service.CalculateRouteInput{
		Origin:       model.Location{Address: req.Origin.Address, Latitude: req.Origin.Latitude, Longitude: req.Origin.Longitude},
		Destination:  model.Location{Address: req.Destination.Address, Latitude: req.Destination.Latitude, Longitude: req.Destination.Longitude},
		PickupTime:   pickup,
		DeliveryTime: delivery,
	}
	if req.Cargo != nil {
		input.Cargo = &model.Cargo{
			ID:                  uuid.New(),
			Type:                req.Cargo.Type,
			WeightKg:            req.Cargo.WeightKg,
			VolumeM3:            req.Cargo.VolumeM3,
			Value:               req.Cargo.Value,
			HandlingFactor:      req.Cargo.HandlingFactor,
			SpecialRequirements: req.Cargo.SpecialRequirements,
		}
	}

	route, err := h.routes.CalculateRoute(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, route)
}

func (h *Handler) routeOptimization(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route id"})
		return
	}
	windowDays, _ := strconv.Atoi(c.DefaultQuery("window_days", "90"))

	route, err := h.routes.Get(c.Request.Context(), routeID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	settings, err := h.settings.ListEnabled(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	breakdown, err := h.costs.Calculate(route, settings)
	if err != nil {
		h.handleError(c, err)
		return
	}

	patterns := h.optimizer.AnalyzePatterns(c.Request.Context(), route, nil, windowDays)
	suggestions := h.optimizer.SuggestOptimizations(c.Request.Context(), route, patterns, settings)
	c.JSON(http.StatusOK, gin.H{
		"cost_breakdown": breakdown,
		"patterns":       patterns,
		"suggestions":    suggestions,
	})
}

func (h *Handler) listCostSettings(c *gin.Context) {
	settings, err := h.settings.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

type costSettingRequest struct {
	ID          *uuid.UUID `json:"id"`
	Name        string     `json:"name" binding:"required"`
	Type        string     `json:"type" binding:"required"`
	Category    string     `json:"category" binding:"required"`
	BaseValue   float64    `json:"base_value"`
	Multiplier  float64    `json:"multiplier"`
	Currency    string     `json:"currency"`
	IsEnabled   bool       `json:"is_enabled"`
	Description string     `json:"description"`
}

func (h *Handler) updateCostSettings(c *gin.Context) {
	var req struct {
		Settings []costSettingRequest `json:"settings" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings := make([]model.CostSetting, 0, len(req.Settings))
	for _, item := range req.Settings {
		setting := model.CostSetting{
			Name:        item.Name,
			Type:        item.Type,
			Category:    item.Category,
			BaseValue:   item.BaseValue,
			Multiplier:  item.Multiplier,
			Currency:    item.Currency,
			IsEnabled:   item.IsEnabled,
			Description: item.Description,
		}
		if item.ID != nil {
			setting.ID = *item.ID
		}
		settings = append(settings, setting)
	}

	result, err := h.settings.BulkUpdate(c.Request.Context(), settings)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

type geographicRestrictionRequest struct {
	AllowedCountries []string `json:"allowed_countries"`
	AllowedRegions   []string `json:"allowed_regions"`
	RestrictedZones  []string `json:"restricted_zones"`
}

type createOfferRequest struct {
	RouteID                string                        `json:"route_id" binding:"required"`
	MarginPercentage       *float64                      `json:"margin_percentage"`
	Currency               string                        `json:"currency"`
	ClientID               *uuid.UUID                    `json:"client_id"`
	ClientName             string                        `json:"client_name"`
	GeographicRestrictions *geographicRestrictionRequest `json:"geographic_restrictions"`
}

func (h *Handler) createOffer(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	routeID, err := uuid.Parse(strings.TrimSpace(req.RouteID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route_id"})
		return
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}
	// Only an absent margin falls back to the default; an explicit zero is
	// passed through and fails the minimum margin rule.
	margin := h.defaultMargin
	if req.MarginPercentage != nil {
		margin = *req.MarginPercentage
	}

	input := service.GenerateOfferInput{
		RouteID:          routeID,
		MarginPercentage: margin,
		Currency:         req.Currency,
		ClientID:         req.ClientID,
		ClientName:       req.ClientName,
		UserID:           principal.UserID,
	}
	if req.GeographicRestrictions != nil {
		input.GeographicRestrictions = &model.GeographicRestriction{
			AllowedCountries: req.GeographicRestrictions.AllowedCountries,
			AllowedRegions:   req.GeographicRestrictions.AllowedRegions,
			RestrictedZones:  req.GeographicRestrictions.RestrictedZones,
		}
	}

	offer, err := h.offers.Generate(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, offer)
}

func (h *Handler) getOffer(c *gin.Context) {
	offerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer id"})
		return
	}
	includeHistory := c.Query("include_history") == "true"

	offer, err := h.offers.Get(c.Request.Context(), offerID, includeHistory)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

type updateOfferRequest struct {
	Version                int                           `json:"version" binding:"required"`
	Reason                 string                        `json:"reason" binding:"required"`
	Status                 *string                       `json:"status"`
	MarginPercentage       *float64                      `json:"margin_percentage"`
	ClientName             *string                       `json:"client_name"`
	GeographicRestrictions *geographicRestrictionRequest `json:"geographic_restrictions"`
}

func (h *Handler) updateOffer(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	offerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer id"})
		return
	}

	var req updateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changes := service.OfferChanges{
		MarginPercentage: req.MarginPercentage,
		ClientName:       req.ClientName,
	}
	if req.Status != nil {
		status, err := model.ParseOfferStatus(*req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		changes.Status = &status
	}
	if req.GeographicRestrictions != nil {
		changes.GeographicRestrictions = &model.GeographicRestriction{
			AllowedCountries: req.GeographicRestrictions.AllowedCountries,
			AllowedRegions:   req.GeographicRestrictions.AllowedRegions,
			RestrictedZones:  req.GeographicRestrictions.RestrictedZones,
		}
	}

	offer, err := h.offers.Update(c.Request.Context(), offerID, changes, req.Version, principal.UserID, req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

type updateStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Version int    `json:"version" binding:"required"`
}

func (h *Handler) updateOfferStatus(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	offerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer id"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := model.ParseOfferStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	offer, err := h.offers.UpdateStatus(c.Request.Context(), offerID, status, req.Version, principal.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "offer": offer})
}

func (h *Handler) deleteOffer(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	offerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer id"})
		return
	}
	reason := c.DefaultQuery("reason", "Deleted by user")

	if err := h.offers.Delete(c.Request.Context(), offerID, principal.UserID, reason); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) listOffers(c *gin.Context) {
	filter, err := parseOfferFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	offers, total, err := h.offers.List(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers, "total_count": total})
}

func (h *Handler) exportOffers(c *gin.Context) {
	filter, err := parseOfferFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter.Limit = 1000
	filter.Offset = 0

	offers, _, err := h.offers.List(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	now := time.Now().UTC()
	content, err := h.excel.Generate(offers, now)
	if err != nil {
		h.handleError(c, err)
		return
	}
	const contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	c.Header("Content-Disposition", "attachment; filename=\""+excel.FileName(now)+"\"")
	c.Data(http.StatusOK, contentType, content)
}

func (h *Handler) offerDocument(c *gin.Context) {
	offerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer id"})
		return
	}

	doc, err := h.offers.Document(c.Request.Context(), offerID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	content, err := h.pdf.Generate(*doc)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\"quote-"+offerID.String()+".pdf\"")
	c.Data(http.StatusOK, "application/pdf", content)
}

func parseOfferFilter(c *gin.Context) (service.OfferFilter, error) {
	filter := service.OfferFilter{
		Currency: c.Query("currency"),
	}

	if raw := c.Query("start_date"); raw != "" {
		t, err := parseTimestamp(raw)
		if err != nil {
			return filter, errors.New("invalid start_date")
		}
		filter.StartDate = &t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := parseTimestamp(raw)
		if err != nil {
			return filter, errors.New("invalid end_date")
		}
		filter.EndDate = &t
	}
	if raw := c.Query("min_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, errors.New("invalid min_price")
		}
		filter.MinPrice = &v
	}
	if raw := c.Query("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, errors.New("invalid max_price")
		}
		filter.MaxPrice = &v
	}
	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseOfferStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	if raw := c.Query("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, errors.New("invalid client_id")
		}
		filter.ClientID = &id
	}
	if raw := c.Query("countries"); raw != "" {
		filter.Countries = strings.Split(raw, ",")
	}
	if raw := c.Query("regions"); raw != "" {
		filter.Regions = strings.Split(raw, ",")
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	return filter, nil
}

// parseTimestamp accepts RFC 3339 only, so every submitted time carries an
// explicit offset.
func parseTimestamp(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(raw))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var routeErr *service.RouteValidationError
	var ruleErr *service.BusinessRuleError
	var costErr *service.CostCalculationError

	switch {
	case errors.As(err, &routeErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": routeErr.Errors})
	case errors.Is(err, service.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &ruleErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ruleErr.Message, "code": ruleErr.Code})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &costErr):
		h.log.Error().Err(err).Msg("cost calculation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": costErr.Error()})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
