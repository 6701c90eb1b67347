package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"photochat/internal/apperror"
	"photochat/internal/auth"
	"photochat/internal/model"
	"photochat/internal/service"
)

// ChatHandler is the REST fallback for the live chat connection.
type ChatHandler interface {
	GetConversations(c *gin.Context)
	GetMessages(c *gin.Context)
	PostMessage(c *gin.Context)
	GetPresence(c *gin.Context)
}

type chatHandler struct {
	service service.ChatService
	logger  *zap.Logger
}

func NewChatHandler(service service.ChatService, logger *zap.Logger) ChatHandler {
	return &chatHandler{
		service: service,
		logger:  logger,
	}
}

// GetConversations returns one summary per counterpart, latest conversation first.
func (h *chatHandler) GetConversations(c *gin.Context) {
	summaries, err := h.service.ListConversations(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summaries)
}

// GetMessages returns a page of the conversation with :otherUserId in
// chronological order and marks the viewer's unread messages in it as read.
func (h *chatHandler) GetMessages(c *gin.Context) {
	otherID, ok := pathID(c, "otherUserId")
	if !ok {
		return
	}

	page := model.HistoryPage{Skip: 0, Limit: model.DefaultHistoryLimit}
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid skip or limit"})
		return
	}

	messages, err := h.service.GetHistory(c.Request.Context(), auth.UserID(c), otherID, page)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// PostMessage sends a message to :receiverId.
func (h *chatHandler) PostMessage(c *gin.Context) {
	receiverID, ok := pathID(c, "receiverId")
	if !ok {
		return
	}

	var body model.MessageCreate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), auth.UserID(c), receiverID, body.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

func (h *chatHandler) GetPresence(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	c.JSON(http.StatusOK, model.PresenceStatus{
		UserID: userID,
		Online: h.service.IsOnline(userID),
	})
}

func (h *chatHandler) respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("chat request failed",
			zap.String("path", c.FullPath()),
			zap.Int64("user_id", auth.UserID(c)),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": apperror.PublicMessage(err)})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}
