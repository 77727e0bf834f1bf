package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const playerKey = "PlayerID"

func jwtSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// AuthRequired is a simple middleware to check the session.
func AuthRequired(c *gin.Context) {
	session := sessions.Default(c)
	player := session.Get(playerKey)
	if player == nil {
		// Abort the request with the appropriate error code
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

// IssuePlayerToken signs a JWT carrying the player id, used by both the REST
// layer and the socket.io handshake.
func IssuePlayerToken(playerID string) (string, error) {
	claims := jwt.MapClaims{
		"player_id": playerID,
		"exp":       time.Now().Add(72 * time.Hour).Unix(),
		"iat":       time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

func parsePlayerToken(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}
	playerID, ok := claims["player_id"].(string)
	if !ok || playerID == "" {
		return "", errors.New("token is missing the player id")
	}
	return playerID, nil
}

// JWT_decoder extracts the acting player id from the Authorization header.
func JWT_decoder(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
		return "", errors.New("missing Authorization header")
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	playerID, err := parsePlayerToken(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return "", err
	}
	return playerID, nil
}

// Socketio_JWT_decoder extracts the player id from a socket.io handshake auth
// payload. The token travels in the "authorization" field with the usual
// "Bearer " prefix.
func Socketio_JWT_decoder(authData map[string]interface{}) (string, error) {
	raw, ok := authData["authorization"].(string)
	if !ok || raw == "" {
		return "", errors.New("missing authorization field in handshake auth")
	}
	return parsePlayerToken(strings.TrimPrefix(raw, "Bearer "))
}
