package controllers

import (
	"Majiang/middleware"
	models "Majiang/models/postgres"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// @Summary Health check
// @Description Returns pong
// @Tags misc
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /ping [get]
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

type guestLoginRequest struct {
	Nickname string `json:"nickname" binding:"required,max=20"`
	Avatar   string `json:"avatar"`
}

// @Summary Guest login
// @Description Creates or fetches the guest profile for a nickname and returns a signed player token
// @Tags players
// @Accept json
// @Produce json
// @Param request body guestLoginRequest true "Guest identity"
// @Success 200 {object} object{player_id=string,nickname=string,token=string}
// @Failure 400 {object} object{error=string}
// @Failure 500 {object} object{error=string}
// @Router /players/login [post]
func GuestLogin(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req guestLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Minimum input sanitizing
		nickname := strings.TrimSpace(req.Nickname)
		if nickname == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Nickname can't be empty"})
			return
		}

		var profile models.PlayerProfile
		err := db.Where("nickname = ?", nickname).First(&profile).Error
		if err == gorm.ErrRecordNotFound {
			profile = models.PlayerProfile{
				ID:       uuid.NewString(),
				Nickname: nickname,
				Avatar:   req.Avatar,
			}
			err = db.Create(&profile).Error
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating player profile"})
			return
		}

		token, err := middleware.IssuePlayerToken(profile.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error issuing token"})
			return
		}

		session := sessions.Default(c)
		session.Set("PlayerID", profile.ID)
		if err := session.Save(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"player_id": profile.ID,
			"nickname":  profile.Nickname,
			"token":     token,
		})
	}
}

// Logout from server, deletes the session associated with the player
func Logout(c *gin.Context) {
	session := sessions.Default(c)
	player := session.Get("PlayerID")
	// There is no session for the player, won't delete nothing
	if player == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session token"})
		return
	}

	session.Delete("PlayerID")
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// @Summary Public player info
// @Description Returns the public profile of a player
// @Tags players
// @Produce json
// @Param player_id path string true "Player id"
// @Success 200 {object} object{player_id=string,nickname=string,avatar=string}
// @Failure 404 {object} object{error=string}
// @Router /players/{player_id} [get]
func GetPlayerPublicInfo(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var profile models.PlayerProfile
		if err := db.Where("id = ?", c.Param("player_id")).First(&profile).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Player not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"player_id": profile.ID,
			"nickname":  profile.Nickname,
			"avatar":    profile.Avatar,
		})
	}
}
