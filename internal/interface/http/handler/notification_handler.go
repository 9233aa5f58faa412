package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gig-marketplace/internal/interface/http/dto"
	"github.com/ignatzorin/gig-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/notification"
)

type NotificationHandler struct {
	list     *notification.ListNotificationsUseCase
	markRead *notification.MarkReadUseCase
}

func NewNotificationHandler(list *notification.ListNotificationsUseCase, markRead *notification.MarkReadUseCase) *NotificationHandler {
	return &NotificationHandler{list: list, markRead: markRead}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, offset := page(c)
	out, err := h.list.Execute(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NotificationListResponse{
		Items:       dto.ToNotificationResponses(out.Items),
		UnreadCount: out.UnreadCount,
	})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.markRead.Execute(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"read": true})
}
