package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/cache"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/config"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/models"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/store"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/pkg/logger"
)

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account and returns a signed token.
func (ct *Controller) Register(c *gin.Context) {
	ctx := c.Request.Context()
	var body credentials
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username and password are required."})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username and password are required."})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error(ctx, "Password hash failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := ct.store.CreateUser(ctx, user); err != nil {
		if err == store.ErrDuplicate {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Username already taken."})
			return
		}
		logger.Error(ctx, "Create user failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}

	// The board payload includes the user listing.
	cache.InvalidateBoard(ctx)

	token, err := issueToken(user.ID)
	if err != nil {
		logger.Error(ctx, "Token signing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user.Ref()})
}

// Login verifies credentials and returns a signed token. All failure paths
// answer identically.
func (ct *Controller) Login(c *gin.Context) {
	ctx := c.Request.Context()
	var body credentials
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	user, err := ct.store.UserByUsername(ctx, body.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	token, err := issueToken(user.ID)
	if err != nil {
		logger.Error(ctx, "Token signing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user.Ref()})
}

func issueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.Get().JWTSecret))
}
