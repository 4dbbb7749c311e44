package routes

import (
	"Rally/controllers"
	"Rally/middleware"
	"Rally/services/chatroom"
	"Rally/services/coordinator"
	"Rally/services/notifications"
	"Rally/services/registry"
	"Rally/services/stream"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Services bundles everything the HTTP surface needs.
type Services struct {
	Coordinator *coordinator.Coordinator
	Chatrooms   *chatroom.Manager
	Registry    *registry.Registry
	Stream      *stream.Stream
	Notifier    *notifications.Dispatcher
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, svc Services) {
	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/")

	api.GET("/ping", controllers.Ping)
	api.POST("/signup", controllers.SignUp(db))
	api.POST("/login", controllers.Login(db))

	authentication := api.Group("/auth")
	authentication.Use(middleware.AuthRequired)
	{
		// Booking pipeline
		authentication.POST("/bookings", controllers.CreateBookingRequest(db, svc.Coordinator))
		authentication.GET("/bookings/:booking_id", controllers.GetBookingRequest(db, svc.Coordinator))
		authentication.POST("/bookings/:booking_id/respond", controllers.RespondToBookingRequest(db, svc.Coordinator))
		authentication.POST("/bookings/:booking_id/cancel", controllers.CancelBookingRequest(db, svc.Coordinator))
		authentication.POST("/bookings/:booking_id/join", controllers.SendJoinRequest(db, svc.Coordinator))
		authentication.GET("/bookings/:booking_id/join_requests", controllers.ListJoinRequests(db, svc.Coordinator))
		authentication.POST("/join_requests/:request_id/accept", controllers.AcceptJoinRequest(db, svc.Coordinator))
		authentication.POST("/join_requests/:request_id/reject", controllers.RejectJoinRequest(db, svc.Coordinator))

		// Conversations and messages
		authentication.GET("/conversations/direct/:other_user", controllers.GetOrCreateDirectConversation(db, svc.Registry))
		authentication.POST("/conversations", controllers.CreateGroupConversation(db, svc.Registry))
		authentication.POST("/conversations/:conversation_id/participants", controllers.AddConversationParticipants(db, svc.Registry))
		authentication.POST("/conversations/:conversation_id/messages", controllers.SendMessage(db, svc.Registry, svc.Stream))
		authentication.GET("/conversations/:conversation_id/messages", controllers.GetMessageHistory(db, svc.Stream))

		// Chatrooms
		authentication.GET("/chatrooms", controllers.GetActiveChatrooms(db, svc.Chatrooms))
		authentication.POST("/chatrooms/sweep", controllers.SweepExpiredChatrooms(db, svc.Chatrooms))

		// Notification inbox
		authentication.GET("/notifications", controllers.ListNotifications(db, svc.Notifier))
		authentication.PATCH("/notifications/:notification_id/read", controllers.MarkNotificationRead(db, svc.Notifier))
	}
}
