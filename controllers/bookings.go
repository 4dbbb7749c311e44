package controllers

import (
	"Rally/services/coordinator"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// @Summary Create a booking request
// @Description Submits a pending booking request for a venue/court/time slot
// @Tags bookings
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param booking body coordinator.CreateBookingInput true "Booking request"
// @Success 200 {object} object{booking=object}
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Router /auth/bookings [post]
// @Security ApiKeyAuth
func CreateBookingRequest(db *gorm.DB, coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := currentUsername(c, db)
		if !ok {
			return
		}

		var in coordinator.CreateBookingInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		// The authenticated caller is always the requester; a booking
		// on your own behalf makes you the host too.
		in.RequesterID = username
		if in.HostID == "" {
			in.HostID = username
		}

		booking, err := coord.CreateBookingRequest(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"booking": booking})
	}
}

// @Summary Get a booking request
// @Description Returns one booking request with its current status and capacity
// @Tags bookings
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param booking_id path string true "Booking id"
// @Success 200 {object} object{booking=object}
// @Failure 404 {object} object{error=string}
// @Router /auth/bookings/{booking_id} [get]
// @Security ApiKeyAuth
func GetBookingRequest(db *gorm.DB, coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUsername(c, db); !ok {
			return
		}

		booking, err := coord.GetBookingRequest(c.Request.Context(), c.Param("booking_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"booking": booking})
	}
}

// @Summary Decide a booking request
// @Description Host confirms or rejects a pending booking. Confirming spins up the game chatroom.
// @Tags bookings
// @Accept x-www-form-urlencoded
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param booking_id path string true "Booking id"
// @Param decision formData string true "confirm or reject"
// @Param reason formData string false "Optional reason shown to the requester"
// @Success 200 {object} object{booking=object,chatroom=object,warning=string}
// @Failure 403 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /auth/bookings/{booking_id}/respond [post]
// @Security ApiKeyAuth
func RespondToBookingRequest(db *gorm.DB, coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := currentUsername(c, db)
		if !ok {
			return
		}

		outcome, err := coord.RespondToBookingRequest(
			c.Request.Context(),
			c.Param("booking_id"),
			c.PostForm("decision"),
			c.PostForm("reason"),
			username,
		)
		if err != nil {
			respondError(c, err)
			return
		}

		resp := gin.H{"booking": outcome.Booking}
		if outcome.Chatroom != nil {
			resp["chatroom"] = outcome.Chatroom
		}
		if w := sideEffectWarning(outcome.NotifyWarning, outcome.ChatroomWarning); w != "" {
			resp["warning"] = w
		}
		c.JSON(http.StatusOK, resp)
	}
}

// @Summary Cancel a booking request
// @Description Cancels a still-pending booking request
// @Tags bookings
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param booking_id path string true "Booking id"
// @Success 200 {object} object{booking=object}
// @Failure 409 {object} object{error=string}
// @Router /auth/bookings/{booking_id}/cancel [post]
// @Security ApiKeyAuth
func CancelBookingRequest(db *gorm.DB, coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := currentUsername(c, db)
		if !ok {
			return
		}

		booking, err := coord.CancelBookingRequest(c.Request.Context(), c.Param("booking_id"), username)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"booking": booking})
	}
}

// @Summary Ask to join a booking
// @Description Files a pending join request for one open spot
// @Tags bookings
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param booking_id path string true "Booking id"
// @Success 200 {object} object{join_request=object,warning=string}
// @Failure 409 {object} object{error=string}
// @Router /auth/bookings/{booking_id}/join [post]
// @Security ApiKeyAuth
func SendJoinRequest(db *gorm.DB, coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := currentUsername(c, db)
		if !ok {
			return
		}

		outcome, err := coord.SendJoinRequest(c.Request.Context(), c.Param("booking_id"), username)
		if err != nil {
			respondError(c, err)
			return
		}

		resp := gin.H{"join_request": outcome.Request}
		if w := sideEffectWarning(outcome.NotifyWarning, nil); w != "" {
			resp["warning"] = w
		}
		c.JSON(http.StatusOK, resp)
	}
}

// @Summary List join requests for a booking
// @Description Host inbox: every join request filed against one booking
// @Tags bookings
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param booking_id path string true "Booking id"
// @Success 200 {object} object{join_requests=array}
// @Failure 403 {object} object{error=string}
// @Router /auth/bookings/{booking_id}/join_requests [get]
// @Security ApiKeyAuth
func ListJoinRequests(db *gorm.DB, coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := currentUsername(c, db)
		if !ok {
			return
		}

		requests, err := coord.ListJoinRequestsForBooking(c.Request.Context(), c.Param("booking_id"), username)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"join_requests": requests})
	}
}

// @Summary Accept a join request
// @Description Host accepts; fills one spot and adds the requester to the game chatroom
// @Tags bookings
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param request_id path string true "Join request id"
// @Success 200 {object} object{join_request=object,warning=string}
// @Failure 403 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /auth/join_requests/{request_id}/accept [post]
// @Security ApiKeyAuth
func AcceptJoinRequest(db *gorm.DB, coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := currentUsername(c, db)
		if !ok {
			return
		}

		outcome, err := coord.AcceptJoinRequest(c.Request.Context(), c.Param("request_id"), username)
		if err != nil {
			respondError(c, err)
			return
		}

		resp := gin.H{"join_request": outcome.Request}
		if w := sideEffectWarning(outcome.NotifyWarning, nil); w != "" {
			resp["warning"] = w
		}
		c.JSON(http.StatusOK, resp)
	}
}

// @Summary Reject a join request
// @Description Host rejects; the booking's capacity is untouched
// @Tags bookings
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param request_id path string true "Join request id"
// @Success 200 {object} object{join_request=object,warning=string}
// @Failure 403 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /auth/join_requests/{request_id}/reject [post]
// @Security ApiKeyAuth
func RejectJoinRequest(db *gorm.DB, coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := currentUsername(c, db)
		if !ok {
			return
		}

		outcome, err := coord.RejectJoinRequest(c.Request.Context(), c.Param("request_id"), username)
		if err != nil {
			respondError(c, err)
			return
		}

		resp := gin.H{"join_request": outcome.Request}
		if w := sideEffectWarning(outcome.NotifyWarning, nil); w != "" {
			resp["warning"] = w
		}
		c.JSON(http.StatusOK, resp)
	}
}

// sideEffectWarning folds failed side effects of a committed transition
// into one secondary warning string; empty when everything went through.
func sideEffectWarning(notifyErr, chatroomErr error) string {
	switch {
	case notifyErr != nil && chatroomErr != nil:
		return "decision saved, but chatroom creation and notification delivery failed"
	case chatroomErr != nil:
		return "decision saved, but the chatroom could not be created yet"
	case notifyErr != nil:
		return "decision saved, but the notification could not be delivered"
	}
	return ""
}
