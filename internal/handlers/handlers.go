package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/connectcapital4-hash/vertexcapital/internal/engine"
	"github.com/connectcapital4-hash/vertexcapital/internal/ledger"
	"github.com/connectcapital4-hash/vertexcapital/internal/market"
)

// Handler exposes the ledger engines over HTTP. This layer stays thin:
// parse, delegate, map errors. Balance and quantity writes happen only
// inside the engines.
type Handler struct {
	store     *ledger.Store
	processor *engine.Processor
	accounts  *engine.AccountService
	growth    *engine.GrowthEngine
	valuation *engine.ValuationService
	prices    market.PriceGateway
	log       zerolog.Logger
}

// New creates the handler set.
func New(store *ledger.Store, processor *engine.Processor, accounts *engine.AccountService, growth *engine.GrowthEngine, valuation *engine.ValuationService, prices market.PriceGateway, log zerolog.Logger) *Handler {
	return &Handler{
		store:     store,
		processor: processor,
		accounts:  accounts,
		growth:    growth,
		valuation: valuation,
		prices:    prices,
		log:       log.With().Str("component", "http").Logger(),
	}
}

// RegisterRoutes wires the handler set onto the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/users", h.CreateUser)
		api.POST("/users/:userId/credit", h.CreditBalance)
		api.GET("/users/:userId/transactions", h.GetTransactions)
		api.GET("/users/:userId/growth", h.GetGrowthHistory)
		api.GET("/users/:userId/reconcile", h.ReconcileUser)

		api.POST("/assets/assign", h.AssignAsset)
		api.POST("/portfolio/withdraw", h.WithdrawHolding)
		api.GET("/portfolio/:userId", h.GetPortfolio)
		api.GET("/portfolio/:userId/withdrawals", h.GetWithdrawalHistory)

		api.POST("/growth/apply", h.ApplyGrowth)
	}

	router.GET("/ws/prices", h.HandlePriceStream)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
}

// respondError maps the engine error taxonomy onto HTTP statuses.
// Validation and state conflicts carry their reason verbatim;
// concurrency and persistence failures stay generic and retryable.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidSaleType),
		errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrInvalidPercent),
		errors.Is(err, engine.ErrInvalidAsset),
		errors.Is(err, engine.ErrInsufficientBalance),
		errors.Is(err, engine.ErrInsufficientQuantity),
		errors.Is(err, engine.ErrNegligibleSale),
		errors.Is(err, engine.ErrHoldingClosed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrHoldingAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrUserNotFound),
		errors.Is(err, ledger.ErrHoldingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrRunAlreadyApplied):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrConcurrentModification):
		c.JSON(http.StatusConflict, gin.H{"error": "operation conflicted, please retry"})
	case errors.Is(err, market.ErrPriceUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "asset price unavailable"})
	case errors.Is(err, engine.ErrProcessorStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service shutting down"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error, please retry"})
	}
}
