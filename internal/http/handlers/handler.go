package handlers

import (
	"errors"
	"math"
	"net/http"

	"taprealm/internal/game"
	"taprealm/internal/logger"
	"taprealm/internal/repository"
	"taprealm/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Auth        *service.AuthService
	Game        *service.GameService
	Leaderboard *service.LeaderboardService
}

func NewHandler(auth *service.AuthService, g *service.GameService, lb *service.LeaderboardService) *Handler {
	return &Handler{Auth: auth, Game: g, Leaderboard: lb}
}

// getUserID извлекает user_id из контекста Gin
func getUserID(c interface{ Get(any) (any, bool) }) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// writeError maps engine and repository errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	var (
		energyErr   *game.EnergyError
		balanceErr  *game.BalanceError
		cooldownErr *game.CooldownError
	)
	switch {
	case errors.As(err, &energyErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "insufficient energy",
			"code":     "insufficient_energy",
			"energy":   energyErr.Current,
			"required": energyErr.Required,
		})
	case errors.As(err, &balanceErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "insufficient balance",
			"code":    "insufficient_balance",
			"price":   balanceErr.Price,
			"balance": balanceErr.Balance,
		})
	case errors.As(err, &cooldownErr):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":          cooldownErr.Error(),
			"code":           "on_cooldown",
			"retry_after":    int64(math.Ceil(cooldownErr.Remaining.Seconds())),
			"next_available": cooldownErr.NextAvailable,
		})
	case errors.Is(err, game.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "code": "rate_limited", "retry_after": 1})
	case errors.Is(err, game.ErrRestricted):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "restricted"})
	case errors.Is(err, game.ErrLeagueLocked):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "league_locked"})
	case errors.Is(err, game.ErrAtMaxLevel):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "max_level"})
	case errors.Is(err, game.ErrAlreadyClaimed), errors.Is(err, repository.ErrAlreadyReferred):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "already_claimed"})
	case errors.Is(err, game.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
	case errors.Is(err, game.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "not_found"})
	case errors.Is(err, repository.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found", "code": "not_found"})
	default:
		logger.WithContext(c.Request.Context()).Error("request failed",
			"path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
