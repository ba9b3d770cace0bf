package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/connectcapital4-hash/vertexcapital/internal/models"
)

type createUserRequest struct {
	Name    string          `json:"name" binding:"required"`
	Email   string          `json:"email" binding:"required,email"`
	Balance decimal.Decimal `json:"balance"`
}

// CreateUser handles POST /api/users
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Balance.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "balance must not be negative"})
		return
	}

	user, err := h.store.CreateUser(req.Name, req.Email, req.Balance)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// CreditBalance handles POST /api/users/:userId/credit
func (h *Handler) CreditBalance(c *gin.Context) {
	userID, ok := h.userIDParam(c)
	if !ok {
		return
	}

	var req models.CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.Credit(c.Request.Context(), userID, req.Amount, req.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Balance credited",
		"new_balance": user.Balance,
	})
}

// GetTransactions handles GET /api/users/:userId/transactions
func (h *Handler) GetTransactions(c *gin.Context) {
	userID, ok := h.userIDParam(c)
	if !ok {
		return
	}

	limit := intQuery(c, "limit", 50)
	entries, err := h.store.Tx.GetByUser(userID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": entries,
		"count":        len(entries),
	})
}

// GetGrowthHistory handles GET /api/users/:userId/growth
func (h *Handler) GetGrowthHistory(c *gin.Context) {
	userID, ok := h.userIDParam(c)
	if !ok {
		return
	}

	entries, err := h.store.Tx.GetByUserAndType(userID, models.TxPortfolioGrowth, intQuery(c, "limit", 30))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"growth": entries, "count": len(entries)})
}

// ReconcileUser handles GET /api/users/:userId/reconcile
func (h *Handler) ReconcileUser(c *gin.Context) {
	userID, ok := h.userIDParam(c)
	if !ok {
		return
	}

	report, err := h.store.ReconcileUser(userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) userIDParam(c *gin.Context) (int, bool) {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil || userID < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return userID, true
}

func intQuery(c *gin.Context, key string, defaultValue int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultValue
}
