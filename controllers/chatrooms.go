package controllers

import (
	"Rally/services/chatroom"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// @Summary List my active game chatrooms
// @Description Returns every chatroom the caller participates in that has not expired. Expired rooms are swept before the list is built.
// @Tags chatrooms
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 200 {object} object{chatrooms=array}
// @Failure 401 {object} object{error=string}
// @Router /auth/chatrooms [get]
// @Security ApiKeyAuth
func GetActiveChatrooms(db *gorm.DB, manager *chatroom.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := currentUsername(c, db)
		if !ok {
			return
		}

		rooms, err := manager.GetActiveChatroomsForUser(c.Request.Context(), username)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"chatrooms": rooms})
	}
}

// @Summary Sweep expired chatrooms
// @Description Deactivates every chatroom past its expiry. Idempotent; also runs on a background timer, this endpoint exists for ops tooling.
// @Tags chatrooms
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 200 {object} object{swept=integer}
// @Router /auth/chatrooms/sweep [post]
// @Security ApiKeyAuth
func SweepExpiredChatrooms(db *gorm.DB, manager *chatroom.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUsername(c, db); !ok {
			return
		}

		swept, err := manager.SweepExpired(c.Request.Context(), time.Now())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"swept": swept})
	}
}
