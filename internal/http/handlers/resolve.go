package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ontoroute/ontoroute/internal/config"
	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/pkg/mapperr"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
	"github.com/ontoroute/ontoroute/internal/services"
)

type ResolveHandler struct {
	log        *logger.Logger
	resolution services.ResolutionService
	defaults   config.Engine
}

func NewResolveHandler(baseLog *logger.Logger, resolution services.ResolutionService, defaults config.Engine) *ResolveHandler {
	return &ResolveHandler{
		log:        baseLog.With("handler", "ResolveHandler"),
		resolution: resolution,
		defaults:   defaults,
	}
}

type resolveRequestBody struct {
	Identifiers    []string `json:"identifiers" binding:"required"`
	SourceEndpoint string   `json:"source_endpoint"`
	TargetEndpoint string   `json:"target_endpoint"`
	SourceOntology string   `json:"source_ontology" binding:"required"`
	TargetOntology string   `json:"target_ontology" binding:"required"`
	AllowReverse   *bool    `json:"allow_reverse"`
	MinConfidence  float64  `json:"min_confidence"`
	MaxHopCount    int      `json:"max_hop_count"`
}

func (h *ResolveHandler) Resolve(c *gin.Context) {
	var body resolveRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	allowReverse := h.defaults.AllowReverse
	if body.AllowReverse != nil {
		allowReverse = *body.AllowReverse
	}
	minConfidence := h.defaults.MinConfidence
	if body.MinConfidence > 0 {
		minConfidence = body.MinConfidence
	}
	maxHopCount := h.defaults.MaxHopCount
	if body.MaxHopCount > 0 {
		maxHopCount = body.MaxHopCount
	}
	result, err := h.resolution.Resolve(c.Request.Context(), services.ResolveRequest{
		Identifiers:    body.Identifiers,
		SourceEndpoint: body.SourceEndpoint,
		TargetEndpoint: body.TargetEndpoint,
		SourceOntology: body.SourceOntology,
		TargetOntology: body.TargetOntology,
		Options: services.ResolveOptions{
			PreferredDirection: types.DirectionForward,
			AllowReverse:       allowReverse,
			Execute: services.ExecuteOptions{
				BatchSize:            h.defaults.BatchSize,
				MaxConcurrentBatches: h.defaults.MaxConcurrentBatches,
				MinConfidence:        minConfidence,
				MaxHopCount:          maxHopCount,
			},
		},
	})
	if err != nil {
		if errors.Is(err, mapperr.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("resolution failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolution failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}
