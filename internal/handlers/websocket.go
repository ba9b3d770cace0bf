package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// PriceUpdate is one streamed quote for a held asset.
type PriceUpdate struct {
	HoldingID   int             `json:"holding_id"`
	AssetType   string          `json:"asset_type"`
	AssetSymbol string          `json:"asset_symbol"`
	Price       decimal.Decimal `json:"price"`
	Timestamp   time.Time       `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandlePriceStream handles GET /ws/prices?userId=N - streams live unit
// prices for a user's open holdings. Read-only: valuations are persisted
// by the valuation service, not from here.
func (h *Handler) HandlePriceStream(c *gin.Context) {
	userID, err := strconv.Atoi(c.Query("userId"))
	if err != nil || userID < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		holdings, err := h.store.Holdings.GetOpenByUser(userID)
		if err != nil {
			h.log.Warn().Err(err).Int("user_id", userID).Msg("Price stream lookup failed")
			return
		}

		for _, hold := range holdings {
			price, err := h.prices.GetUnitPrice(ctx, hold.AssetType, hold.AssetSymbol)
			if err != nil {
				// Skip the symbol this tick; the next tick retries.
				continue
			}
			update := PriceUpdate{
				HoldingID:   hold.ID,
				AssetType:   hold.AssetType,
				AssetSymbol: hold.AssetSymbol,
				Price:       price,
				Timestamp:   time.Now(),
			}
			if err := conn.WriteJSON(update); err != nil {
				return
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
