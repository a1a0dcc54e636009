package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/cache"
)

// GenerateDescription drafts a task description from a title. The response is
// always success-shaped; AI backend failure substitutes the fallback text.
// Nothing is persisted here: the client saves via the normal update path.
func (ct *Controller) GenerateDescription(c *gin.Context) {
	if _, ok := ct.currentUser(c); !ok {
		return
	}
	var body struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Title is required."})
		return
	}
	description := ct.svc.GenerateDescription(c.Request.Context(), body.Title)
	c.JSON(http.StatusOK, gin.H{"description": description})
}

// SuggestSubtasks appends an AI-drafted checklist to the task description as
// a versioned mutation.
func (ct *Controller) SuggestSubtasks(c *gin.Context) {
	ctx := c.Request.Context()
	actor, ok := ct.currentUser(c)
	if !ok {
		return
	}
	task, err := ct.svc.SuggestSubtasks(ctx, actor, c.Param("id"))
	if err != nil {
		ct.respondError(c, err)
		return
	}
	cache.InvalidateBoard(ctx)
	c.JSON(http.StatusOK, task)
}
