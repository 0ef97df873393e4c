package handlers

import (
	"errors"
	"net/http"

	"taprealm/internal/telegram"

	"github.com/gin-gonic/gin"
)

// maxInitDataLen caps the init_data a client may post.
const maxInitDataLen = 4096

type AuthRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if len(req.InitData) > maxInitDataLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data too long"})
		return
	}

	res, err := h.Auth.Login(c.Request.Context(), req.InitData, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, telegram.ErrInvalidInitData) || errors.Is(err, telegram.ErrInitDataExpired) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or stale telegram data"})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *Handler) Me(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.Auth.Me(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	state, err := h.Game.State(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  user,
		"state": state,
	})
}
