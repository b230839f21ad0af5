package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"salakbook/internal/domain/models"
	"salakbook/internal/service/export"
	"salakbook/internal/service/production"
)

const dateLayout = "2006-01-02"

// ProductionHandler serves harvest record load/save and workbook export.
type ProductionHandler struct {
	store  *production.Store
	logger *zap.Logger
}

// NewProductionHandler constructs the production HTTP adapter.
func NewProductionHandler(store *production.Store, logger *zap.Logger) *ProductionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductionHandler{store: store, logger: logger}
}

type productionRecordDTO struct {
	Date       string         `json:"date" binding:"required"`
	Quantities map[string]int `json:"quantities" binding:"required"`
}

type saveProductionRequest struct {
	Records []productionRecordDTO `json:"records" binding:"required"`
}

// List returns the caller's production records sorted by date.
func (h *ProductionHandler) List(c *gin.Context) {
	sess := SessionFromContext(c)

	records, err := h.store.Load(c.Request.Context(), sess)
	if err != nil {
		h.logger.Error("failed loading production records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to load records"})
		return
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// Save replaces the caller's full record set.
func (h *ProductionHandler) Save(c *gin.Context) {
	sess := SessionFromContext(c)

	var req saveProductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	records, err := recordsFromDTOs(req.Records)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fellBack, err := h.store.Save(c.Request.Context(), sess, records)
	if err != nil {
		h.logger.Error("failed saving production records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to save records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved": len(records), "degraded": fellBack})
}

// Export streams the caller's records as an xlsx workbook.
func (h *ProductionHandler) Export(c *gin.Context) {
	sess := SessionFromContext(c)

	records, err := h.store.Load(c.Request.Context(), sess)
	if err != nil {
		h.logger.Error("failed loading records for export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to load records"})
		return
	}

	workbook, err := export.ProductionWorkbook(records)
	if err != nil {
		h.logger.Error("failed building workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to build workbook"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="produksi.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

func recordsFromDTOs(dtos []productionRecordDTO) ([]models.ProductionRecord, error) {
	records := make([]models.ProductionRecord, 0, len(dtos))
	for _, dto := range dtos {
		date, err := time.Parse(dateLayout, dto.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q", dto.Date)
		}

		quantities := make(map[models.Farm]int, len(dto.Quantities))
		for name, qty := range dto.Quantities {
			if !models.IsFarm(name) {
				return nil, fmt.Errorf("unknown farm %q", name)
			}
			if qty < 0 {
				return nil, fmt.Errorf("negative quantity for farm %q", name)
			}
			quantities[models.Farm(name)] = qty
		}

		records = append(records, models.ProductionRecord{Date: date, Quantities: quantities})
	}
	return records, nil
}
