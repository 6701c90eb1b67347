package approuters

import (
	"github.com/gin-gonic/gin"

	"photochat/internal/auth"
	"photochat/internal/configuration"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	chatRoute := router.Group("/api/v1/chat", auth.RequireUser(container.Verifier, container.Users, container.Logger))
	{
		chatRoute.GET("/conversations", container.ChatHandler.GetConversations)
		chatRoute.GET("/messages/:otherUserId", container.ChatHandler.GetMessages)
		chatRoute.POST("/messages/:receiverId", container.ChatHandler.PostMessage)
		chatRoute.GET("/presence/:userId", container.ChatHandler.GetPresence)
	}
}
