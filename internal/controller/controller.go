package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/board"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/models"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/store"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/pkg/logger"
)

// Controller holds the handler dependencies. gin handlers are methods so the
// board service and store arrive by injection instead of package globals.
type Controller struct {
	svc        *board.Service
	store      store.Store
	boardGroup singleflight.Group
}

// New returns a Controller backed by the given service and store.
func New(svc *board.Service, st store.Store) *Controller {
	return &Controller{svc: svc, store: st}
}

// currentUser resolves the authenticated user set by the auth middleware.
// A token whose subject no longer exists is treated the same as no token.
func (ct *Controller) currentUser(c *gin.Context) (*models.User, bool) {
	uid := c.GetString("user")
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	u, err := ct.store.User(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	return u, true
}

// respondError maps domain errors onto HTTP responses. Conflicts get their
// own shape so clients can offer a resolution UI rather than a bare error.
func (ct *Controller) respondError(c *gin.Context, err error) {
	var conflict *board.ConflictError
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"message": "Conflict detected", "conflict": conflict})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
	case errors.Is(err, board.ErrEmptyTitle),
		errors.Is(err, board.ErrReservedTitle),
		errors.Is(err, board.ErrDuplicateTitle),
		errors.Is(err, board.ErrInvalidStatus),
		errors.Is(err, board.ErrInvalidPriority),
		errors.Is(err, board.ErrNoUsersAvailable):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		logger.Error(c.Request.Context(), "Request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
	}
}
