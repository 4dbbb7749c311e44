package controllers

import (
	"Rally/services/notifications"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// @Summary List my notifications
// @Description Returns the caller's notifications, newest first. Pass unread=true to filter.
// @Tags notifications
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param unread query bool false "Only unread notifications"
// @Success 200 {object} object{notifications=array}
// @Failure 401 {object} object{error=string}
// @Router /auth/notifications [get]
// @Security ApiKeyAuth
func ListNotifications(db *gorm.DB, dispatcher *notifications.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := currentUsername(c, db)
		if !ok {
			return
		}

		notifs, err := dispatcher.ListForRecipient(c.Request.Context(), username, c.Query("unread") == "true")
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": notifs})
	}
}

// @Summary Mark a notification as read
// @Description Flips the read flag on one of the caller's notifications
// @Tags notifications
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param notification_id path string true "Notification id"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Router /auth/notifications/{notification_id}/read [patch]
// @Security ApiKeyAuth
func MarkNotificationRead(db *gorm.DB, dispatcher *notifications.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := currentUsername(c, db)
		if !ok {
			return
		}

		if err := dispatcher.MarkRead(c.Request.Context(), c.Param("notification_id"), username); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
	}
}
