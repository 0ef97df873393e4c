package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetLeaderboard returns the global or squad top, ?type=global|squad.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	ctx := c.Request.Context()

	switch c.DefaultQuery("type", "global") {
	case "global":
		top, err := h.Leaderboard.Global(ctx, limit, offset)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"type": "global", "leaderboard": top})
	case "squad":
		top, err := h.Leaderboard.Squads(ctx, limit, offset)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"type": "squad", "leaderboard": top})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be global or squad"})
	}
}

// GetMyRank returns the current user's global rank, 0 when unranked.
func (h *Handler) GetMyRank(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rank, err := h.Leaderboard.Rank(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rank": rank})
}
