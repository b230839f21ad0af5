package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"salakbook/internal/domain/models"
	"salakbook/internal/service/allocation"
	"salakbook/internal/service/revenue"
	"salakbook/pkg/clients/marketprice"
)

// RevenueHandler serves estimate load/save, the estimate factory, scenario
// comparison and reference price lookups.
type RevenueHandler struct {
	store  *revenue.Store
	engine *allocation.Engine
	prices marketprice.Client
	logger *zap.Logger
}

// NewRevenueHandler constructs the revenue HTTP adapter. prices may be nil
// when no reference price API is configured.
func NewRevenueHandler(store *revenue.Store, engine *allocation.Engine, prices marketprice.Client, logger *zap.Logger) *RevenueHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevenueHandler{store: store, engine: engine, prices: prices, logger: logger}
}

// List returns the caller's stored estimates.
func (h *RevenueHandler) List(c *gin.Context) {
	sess := SessionFromContext(c)

	estimates, err := h.store.Load(c.Request.Context(), sess)
	if err != nil {
		h.logger.Error("failed loading estimates", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to load estimates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"estimates": estimates})
}

type saveEstimatesRequest struct {
	Estimates []models.RevenueEstimate `json:"estimates" binding:"required"`
}

// Save replaces the caller's stored estimate list wholesale.
func (h *RevenueHandler) Save(c *gin.Context) {
	sess := SessionFromContext(c)

	var req saveEstimatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	for _, estimate := range req.Estimates {
		if missing := estimate.MissingFields(); len(missing) > 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":          "estimate is incomplete",
				"estimate_id":    estimate.ID,
				"missing_fields": missing,
			})
			return
		}
	}

	fellBack, err := h.store.Save(c.Request.Context(), sess, req.Estimates)
	if err != nil {
		h.logger.Error("failed saving estimates", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to save estimates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved": len(req.Estimates), "degraded": fellBack})
}

type buildEstimateRequest struct {
	Date              string                        `json:"date" binding:"required"`
	TotalUnits        int                           `json:"total_units"`
	SizeDistribution  map[string]float64            `json:"size_distribution" binding:"required"`
	SelectedBuyers    []string                      `json:"selected_buyers" binding:"required"`
	BuyerDistribution map[string]float64            `json:"buyer_distribution" binding:"required"`
	BuyerPrices       map[string]map[string]float64 `json:"buyer_prices" binding:"required"`
}

// Build runs the validating factory and appends the result to the caller's
// stored list.
func (h *RevenueHandler) Build(c *gin.Context) {
	sess := SessionFromContext(c)

	var req buildEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	params, err := paramsFromRequest(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	estimate, err := h.engine.BuildEstimate(params)
	if err != nil {
		var vErr *allocation.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "reason": vErr.Reason})
			return
		}
		h.logger.Error("failed building estimate", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to build estimate"})
		return
	}

	existing, err := h.store.Load(c.Request.Context(), sess)
	if err != nil {
		h.logger.Error("failed loading estimates before append", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to store estimate"})
		return
	}

	fellBack, err := h.store.Save(c.Request.Context(), sess, append(existing, estimate))
	if err != nil {
		h.logger.Error("failed storing estimate", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to store estimate"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"estimate": estimate, "degraded": fellBack})
}

// Detail returns one stored estimate by id.
func (h *RevenueHandler) Detail(c *gin.Context) {
	sess := SessionFromContext(c)

	estimate, found, err := h.store.Get(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		h.respondEstimateError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "estimate not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"estimate": estimate})
}

type scenarioRequest struct {
	BuyerDistribution map[string]float64 `json:"buyer_distribution" binding:"required"`
}

// Scenario compares the stored estimate against a replacement buyer split.
func (h *RevenueHandler) Scenario(c *gin.Context) {
	sess := SessionFromContext(c)

	var req scenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	buyerPct, err := buyerPercentages(req.BuyerDistribution)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	estimate, found, err := h.store.Get(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		h.respondEstimateError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "estimate not found"})
		return
	}

	result, err := h.engine.CompareScenario(*estimate, buyerPct)
	if err != nil {
		h.respondEstimateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"scenario": result})
}

// ReferenceRates returns current per-grade reference prices from the market
// price API.
func (h *RevenueHandler) ReferenceRates(c *gin.Context) {
	if h.prices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reference price api not configured"})
		return
	}

	rates, err := h.prices.LatestRates(c.Request.Context())
	if err != nil {
		h.logger.Error("failed fetching reference rates", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to fetch reference rates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rates": rates})
}

func (h *RevenueHandler) respondEstimateError(c *gin.Context, err error) {
	var mErr *models.MalformedEstimateError
	if errors.As(err, &mErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "estimate is incomplete", "missing_fields": mErr.Missing})
		return
	}

	var vErr *allocation.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "reason": vErr.Reason})
		return
	}

	h.logger.Error("estimate operation failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "estimate operation failed"})
}

func paramsFromRequest(req buildEstimateRequest) (allocation.EstimateParams, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return allocation.EstimateParams{}, fmt.Errorf("invalid date %q", req.Date)
	}
	if req.TotalUnits < 0 {
		return allocation.EstimateParams{}, fmt.Errorf("total_units must not be negative")
	}

	sizePct := make(map[models.Size]float64, len(req.SizeDistribution))
	for name, pct := range req.SizeDistribution {
		if !isSize(name) {
			return allocation.EstimateParams{}, fmt.Errorf("unknown size %q", name)
		}
		sizePct[models.Size(name)] = pct
	}

	buyers := make([]models.Buyer, 0, len(req.SelectedBuyers))
	for _, name := range req.SelectedBuyers {
		if !isBuyer(name) {
			return allocation.EstimateParams{}, fmt.Errorf("unknown buyer %q", name)
		}
		buyers = append(buyers, models.Buyer(name))
	}

	buyerPct, err := buyerPercentages(req.BuyerDistribution)
	if err != nil {
		return allocation.EstimateParams{}, err
	}

	prices := make(map[models.Buyer]map[models.Size]float64, len(req.BuyerPrices))
	for buyerName, perSize := range req.BuyerPrices {
		if !isBuyer(buyerName) {
			return allocation.EstimateParams{}, fmt.Errorf("unknown buyer %q", buyerName)
		}
		rates := make(map[models.Size]float64, len(perSize))
		for sizeName, rate := range perSize {
			if !isSize(sizeName) {
				return allocation.EstimateParams{}, fmt.Errorf("unknown size %q", sizeName)
			}
			if rate < 0 {
				return allocation.EstimateParams{}, fmt.Errorf("negative rate for buyer %q size %q", buyerName, sizeName)
			}
			rates[models.Size(sizeName)] = rate
		}
		prices[models.Buyer(buyerName)] = rates
	}

	return allocation.EstimateParams{
		Date:              date,
		TotalUnits:        req.TotalUnits,
		SizeDistribution:  sizePct,
		SelectedBuyers:    buyers,
		BuyerDistribution: buyerPct,
		BuyerPrices:       prices,
	}, nil
}

func buyerPercentages(raw map[string]float64) (map[models.Buyer]float64, error) {
	out := make(map[models.Buyer]float64, len(raw))
	for name, pct := range raw {
		if !isBuyer(name) {
			return nil, fmt.Errorf("unknown buyer %q", name)
		}
		out[models.Buyer(name)] = pct
	}
	return out, nil
}

func isSize(name string) bool {
	for _, size := range models.Sizes {
		if string(size) == name {
			return true
		}
	}
	return false
}

func isBuyer(name string) bool {
	for _, buyer := range models.Buyers {
		if string(buyer) == name {
			return true
		}
	}
	return false
}
