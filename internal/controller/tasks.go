package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/cache"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/models"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/pkg/logger"
)

// GetBoard returns the full board state, cache-first as raw bytes with
// singleflight on the miss path so a cold cache does not stampede the store.
func (ct *Controller) GetBoard(c *gin.Context) {
	ctx := c.Request.Context()
	if b, ok := cache.GetRawBoard(ctx); ok {
		c.Data(http.StatusOK, "application/json", b)
		return
	}
	v, err, _ := ct.boardGroup.Do("board", func() (interface{}, error) {
		board, err := ct.svc.Board(context.Background())
		if err != nil {
			return nil, err
		}
		return json.Marshal(board)
	})
	if err != nil {
		if ctx.Err() != nil || isContextErr(err) {
			return
		}
		logger.Error(ctx, "GetBoard failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}
	b := v.([]byte)
	c.Data(http.StatusOK, "application/json", b)
	go cache.SetRawBoardAsync(b)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// CreateTask creates a task in the Todo column at version 1.
func (ct *Controller) CreateTask(c *gin.Context) {
	ctx := c.Request.Context()
	actor, ok := ct.currentUser(c)
	if !ok {
		return
	}
	var body struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request", "details": err.Error()})
		return
	}
	task, err := ct.svc.CreateTask(ctx, actor, body.Title, body.Description, body.Priority)
	if err != nil {
		ct.respondError(c, err)
		return
	}
	cache.InvalidateBoard(ctx)
	c.JSON(http.StatusCreated, task)
}

// UpdateTask applies a version-checked partial update. A stale version gets a
// 409 whose conflict payload carries the authoritative and attempted states.
func (ct *Controller) UpdateTask(c *gin.Context) {
	ctx := c.Request.Context()
	actor, ok := ct.currentUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	var body struct {
		models.TaskPatch
		Version *int `json:"version"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}
	if body.Version == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Version is required."})
		return
	}
	task, err := ct.svc.UpdateTask(ctx, actor, id, body.TaskPatch, *body.Version)
	if err != nil {
		ct.respondError(c, err)
		return
	}
	cache.InvalidateBoard(ctx)
	c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task.
func (ct *Controller) DeleteTask(c *gin.Context) {
	ctx := c.Request.Context()
	actor, ok := ct.currentUser(c)
	if !ok {
		return
	}
	if err := ct.svc.DeleteTask(ctx, actor, c.Param("id")); err != nil {
		ct.respondError(c, err)
		return
	}
	cache.InvalidateBoard(ctx)
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

// SmartAssign hands the task to the least-loaded user.
func (ct *Controller) SmartAssign(c *gin.Context) {
	ctx := c.Request.Context()
	actor, ok := ct.currentUser(c)
	if !ok {
		return
	}
	task, err := ct.svc.SmartAssign(ctx, actor, c.Param("id"))
	if err != nil {
		ct.respondError(c, err)
		return
	}
	cache.InvalidateBoard(ctx)
	c.JSON(http.StatusOK, task)
}
