package socketio_utils

import (
	"Rally/middleware"
	models "Rally/models/postgres"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/v2/socket"
	"gorm.io/gorm"
)

// VerifyUserConnection verifies a socket.io client connection using JWT
// authentication. It extracts the email from the JWT token and retrieves
// the associated username from the database.
func VerifyUserConnection(client *socket.Socket, db *gorm.DB) (success bool, username, email string) {
	authData, ok := client.Handshake().Auth.(map[string]interface{})
	if !ok {
		client.Emit("error", gin.H{"error": "Authentication failed: missing auth data"})
		return false, "", ""
	}

	email, err := middleware.SocketJWTDecoder(authData)
	if err != nil {
		log.Println("Error decoding JWT:", err)
		client.Emit("error", gin.H{
			"error": "Authentication failed: invalid JWT. Remember to set it on the 'authorization' field with the 'Bearer ' prefix.",
		})
		return false, "", ""
	}

	var user models.User
	if result := db.Where("email = ?", email).First(&user); result.Error != nil {
		log.Println("Error fetching user from database:", result.Error)
		client.Emit("error", gin.H{"error": "Authentication failed: could not find user"})
		return false, "", email
	}

	return true, user.Username, email
}
