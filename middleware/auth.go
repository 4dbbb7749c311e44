package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const tokenLifetime = 72 * time.Hour

func jwtSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// GenerateToken issues a signed JWT carrying the user's email. The
// email is the account key; handlers resolve it to a username.
func GenerateToken(email string) (string, error) {
	claims := jwt.MapClaims{
		"email": email,
		"exp":   time.Now().Add(tokenLifetime).Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

func decodeToken(tokenString string) (string, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", errors.New("token is missing the email claim")
	}
	return email, nil
}

// AuthRequired guards the /auth route group. It aborts with 401 when
// the bearer token is missing or invalid and stashes the caller's
// email in the gin context otherwise.
func AuthRequired(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization header"})
		return
	}

	email, err := decodeToken(header)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token. Remember the 'Bearer ' prefix."})
		return
	}

	c.Set("email", email)
	c.Next()
}

// JWTDecoder extracts the authenticated email from the request. It is
// the single identity source for controllers.
func JWTDecoder(c *gin.Context) (string, error) {
	if email, exists := c.Get("email"); exists {
		if s, ok := email.(string); ok && s != "" {
			return s, nil
		}
	}
	// Fallback for handlers mounted outside the auth group
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errors.New("missing Authorization header")
	}
	return decodeToken(header)
}

// SocketJWTDecoder validates the JWT a socket.io client sends in its
// handshake auth data and returns the caller's email.
func SocketJWTDecoder(authData map[string]interface{}) (string, error) {
	token, ok := authData["authorization"].(string)
	if !ok || token == "" {
		return "", errors.New("missing authorization token in handshake")
	}
	return decodeToken(token)
}
