package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tazhate/classsync/internal/api/response"
)

type UserHandler struct {
	userSvc UserService
}

func NewUserHandler(userSvc UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

type meResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty"`
}

type linkTelegramRequest struct {
	ChatID *int64 `json:"chat_id" binding:"required"`
}

// Me GET /api/v1/me
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	u, err := h.userSvc.Get(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	resp := meResponse{ID: u.ID, Email: u.Email}
	if u.HasTelegram() {
		resp.TelegramChatID = u.TelegramChatID
	}
	response.OK(c, resp)
}

// LinkTelegram sets the chat that receives reminders; chat_id 0 unlinks
// PUT /api/v1/me/telegram
func (h *UserHandler) LinkTelegram(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req linkTelegramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "chat_id is required")
		return
	}

	if err := h.userSvc.LinkTelegram(c.Request.Context(), userID, *req.ChatID); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"chat_id": *req.ChatID})
}
