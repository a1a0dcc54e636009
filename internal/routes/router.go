package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/controller"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/hub"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/middleware"
)

// Router assembles the HTTP surface: auth, board reads, task mutations, AI
// helpers and the WebSocket event channel.
func Router(ct *controller.Controller, h *hub.Hub) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Health for load balancers and K8s probes
	router.GET("/health", ct.Health)
	router.GET("/ready", ct.Ready)

	// Public: no auth
	auth := router.Group("/api/auth")
	{
		auth.POST("/register", ct.Register)
		auth.POST("/login", ct.Login)
	}

	// Protected: JWT required
	api := router.Group("/api/tasks")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/board", ct.GetBoard)
		api.POST("", ct.CreateTask)
		api.PUT("/:id", ct.UpdateTask)
		api.DELETE("/:id", ct.DeleteTask)
		api.POST("/:id/smart-assign", ct.SmartAssign)
		api.POST("/generate-description", ct.GenerateDescription)
		api.POST("/:id/suggest-subtasks", ct.SuggestSubtasks)
	}

	// Event channel: same JWT, token via query param for browser clients
	router.GET("/ws", middleware.AuthMiddleware(), h.Serve)

	return router
}
