package handlers

import (
	"net/http"

	"taprealm/internal/game"

	"github.com/gin-gonic/gin"
)

type TapRequest struct {
	Taps int64 `json:"taps"`
}

type UpgradeRequest struct {
	Type game.UpgradeType `json:"type" binding:"required"`
}

type BoostRequest struct {
	Type game.BoostType `json:"type" binding:"required"`
}

// State returns the player's snapshot without writing.
func (h *Handler) State(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	snap, err := h.Game.State(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) Tap(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req TapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	out, err := h.Game.Tap(c.Request.Context(), userID, req.Taps)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Upgrades(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	list, err := h.Game.Upgrades(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upgrades": list})
}

func (h *Handler) BuyUpgrade(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req UpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	res, err := h.Game.BuyUpgrade(c.Request.Context(), userID, req.Type)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"type":       res.Type,
		"level":      res.NewLevel,
		"price":      res.Price,
		"next_price": res.NextPrice,
		"balance":    res.State.Balance,
		"tap_power":  res.State.TapPower,
		"max_energy": res.State.MaxEnergy,
	})
}

func (h *Handler) ClaimBoost(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req BoostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	res, err := h.Game.ClaimBoost(c.Request.Context(), userID, req.Type)
	if err != nil {
		writeError(c, err)
		return
	}
	body := gin.H{
		"type":              res.Type,
		"claimed_at":        res.ClaimedAt,
		"next_available_at": res.NextAvailableAt,
		"energy":            res.Energy,
	}
	if !res.TurboExpiresAt.IsZero() {
		body["turbo_expires_at"] = res.TurboExpiresAt
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) ClaimDaily(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Game.ClaimDaily(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reward":        res.Reward,
		"streak":        res.Streak,
		"next_claim_at": res.NextClaimAt,
		"balance":       res.State.Balance,
		"league":        res.State.League,
		"league_up":     res.LeagueChanged,
	})
}

// Refresh banks regenerated energy and returns the new snapshot.
func (h *Handler) Refresh(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	snap, err := h.Game.Refresh(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) Leagues(c *gin.Context) {
	c.JSON(http.StatusOK, h.Game.Leagues())
}
