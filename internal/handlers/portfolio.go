package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/connectcapital4-hash/vertexcapital/internal/models"
)

// AssignAsset handles POST /api/assets/assign
func (h *Handler) AssignAsset(c *gin.Context) {
	var req models.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	holding, err := h.processor.SubmitAssign(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Asset assigned",
		"holding": holding,
	})
}

// WithdrawHolding handles POST /api/portfolio/withdraw
func (h *Handler) WithdrawHolding(c *gin.Context) {
	var req models.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.processor.SubmitWithdraw(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Holding sold",
		"withdrawal": receipt.Withdrawal,
		"sale_value": receipt.SaleValue,
		"remaining":  receipt.RemainingQuantity,
		"balance":    receipt.NewBalance,
	})
}

// GetPortfolio handles GET /api/portfolio/:userId
func (h *Handler) GetPortfolio(c *gin.Context) {
	userID, ok := h.userIDParam(c)
	if !ok {
		return
	}

	user, err := h.store.Users.Get(userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Refresh cached valuations from live prices; stale values survive
	// gateway hiccups.
	holdings, err := h.valuation.RefreshUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	available := make([]models.AvailableHolding, 0, len(holdings))
	totalValue := user.Balance
	for _, hold := range holdings {
		if hold.Closed() {
			continue
		}
		currentPrice := decimal.Zero
		if hold.Quantity.IsPositive() {
			currentPrice = hold.CurrentValue.DivRound(hold.Quantity, models.QtyPlaces)
		}
		available = append(available, models.AvailableHolding{
			ID:                hold.ID,
			AssetName:         hold.AssetName,
			AssetSymbol:       hold.AssetSymbol,
			AssetType:         hold.AssetType,
			AvailableQuantity: hold.Quantity,
			CurrentValue:      hold.CurrentValue,
			PurchasePrice:     hold.PurchasePrice,
			ProfitLoss:        hold.ProfitLoss,
			SoldQuantity:      hold.SoldQuantity,
			CurrentPrice:      currentPrice,
		})
		totalValue = totalValue.Add(hold.CurrentValue)
	}

	c.JSON(http.StatusOK, models.PortfolioResponse{
		Holdings:    available,
		CashBalance: user.Balance,
		TotalValue:  totalValue,
	})
}

// GetWithdrawalHistory handles GET /api/portfolio/:userId/withdrawals
func (h *Handler) GetWithdrawalHistory(c *gin.Context) {
	userID, ok := h.userIDParam(c)
	if !ok {
		return
	}

	receipts, err := h.store.Withdrawals.GetByUser(userID, intQuery(c, "limit", 50))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"withdrawals": receipts,
		"count":       len(receipts),
	})
}

// ApplyGrowth handles POST /api/growth/apply - the manual trigger for
// the same engine the scheduler invokes.
func (h *Handler) ApplyGrowth(c *gin.Context) {
	var req models.GrowthRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.growth.Apply(c.Request.Context(), req.Token)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Growth applied",
		"summary": summary,
	})
}
