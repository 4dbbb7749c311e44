package controllers

import (
	models "Rally/models/postgres"
	"Rally/services/registry"
	"Rally/services/stream"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// @Summary Open (or fetch) a direct conversation
// @Description Returns the single 1:1 conversation with another user, creating it if needed. Safe to call from both sides at once.
// @Tags conversations
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param other_user path string true "The other participant's username"
// @Success 200 {object} object{conversation=object}
// @Failure 400 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Router /auth/conversations/direct/{other_user} [get]
// @Security ApiKeyAuth
func GetOrCreateDirectConversation(db *gorm.DB, reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := currentUsername(c, db)
		if !ok {
			return
		}

		other := c.Param("other_user")
		var count int64
		if err := db.Model(&models.User{}).Where("username = ?", other).Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if count == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		conv, err := reg.GetOrCreateDirect(c.Request.Context(), username, other)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"conversation": conv})
	}
}

type createGroupBody struct {
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
}

// @Summary Create a group conversation
// @Description Creates a group/channel conversation. Game chatroom conversations are created by the booking flow, not here.
// @Tags conversations
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param body body object{type=string,name=string,participants=array} true "Conversation"
// @Success 200 {object} object{conversation=object}
// @Failure 400 {object} object{error=string}
// @Router /auth/conversations [post]
// @Security ApiKeyAuth
func CreateGroupConversation(db *gorm.DB, reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := currentUsername(c, db)
		if !ok {
			return
		}

		var body createGroupBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		ctype := models.ConversationType(body.Type)
		if ctype == "" {
			ctype = models.ConversationGroup
		}
		if ctype != models.ConversationGroup && ctype != models.ConversationChannel {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Type must be group or channel"})
			return
		}

		conv, err := reg.CreateGroup(c.Request.Context(), ctype, body.Name, body.Participants, username)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"conversation": conv})
	}
}

// @Summary Add participants to a conversation
// @Description Idempotent union into the participant set
// @Tags conversations
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param conversation_id path string true "Conversation id"
// @Param body body object{user_ids=array} true "Users to add"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} object{error=string}
// @Router /auth/conversations/{conversation_id}/participants [post]
// @Security ApiKeyAuth
func AddConversationParticipants(db *gorm.DB, reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUsername(c, db); !ok {
			return
		}

		var body struct {
			UserIDs []string `json:"user_ids"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || len(body.UserIDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_ids is required"})
			return
		}

		if err := reg.AddParticipants(c.Request.Context(), c.Param("conversation_id"), body.UserIDs); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Participants added"})
	}
}

// @Summary Send a message
// @Description Appends a message; the server assigns id and timestamp and fans it out to subscribers
// @Tags messages
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param conversation_id path string true "Conversation id"
// @Param body body object{content=string,kind=string} true "Message"
// @Success 200 {object} object{message=object}
// @Failure 403 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Router /auth/conversations/{conversation_id}/messages [post]
// @Security ApiKeyAuth
func SendMessage(db *gorm.DB, reg *registry.Registry, msgStream *stream.Stream) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := currentUsername(c, db)
		if !ok {
			return
		}
		conversationID := c.Param("conversation_id")

		member, err := reg.IsParticipant(c.Request.Context(), conversationID, username)
		if err != nil {
			respondError(c, err)
			return
		}
		if !member {
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not in this conversation"})
			return
		}

		var body struct {
			Content string `json:"content"`
			Kind    string `json:"kind"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		msg, err := msgStream.Send(c.Request.Context(), conversationID, username, body.Content, models.MessageKind(body.Kind))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	}
}

// @Summary Get message history
// @Description One page of messages, oldest to newest. Pass before=<message_id> to load earlier pages.
// @Tags messages
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param conversation_id path string true "Conversation id"
// @Param limit query int false "Page size (default 50, max 100)"
// @Param before query string false "Message id to page backwards from"
// @Success 200 {object} object{messages=array}
// @Failure 404 {object} object{error=string}
// @Router /auth/conversations/{conversation_id}/messages [get]
// @Security ApiKeyAuth
func GetMessageHistory(db *gorm.DB, msgStream *stream.Stream) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUsername(c, db); !ok {
			return
		}

		limit, _ := strconv.Atoi(c.Query("limit"))
		msgs, err := msgStream.GetHistory(c.Request.Context(), c.Param("conversation_id"), limit, c.Query("before"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}
