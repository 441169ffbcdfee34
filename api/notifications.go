package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pricemonitor/models"
)

const defaultNotificationLimit = 50

func (s *Server) listNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = defaultNotificationLimit
	}

	list, err := s.store.ListNotifications(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		serviceError(c, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) unreadCount(c *gin.Context) {
	count, err := s.store.UnreadNotificationCount(c.Request.Context(), currentUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (s *Server) markRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
		return
	}

	ok, err := s.store.MarkNotificationRead(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notificação não encontrada"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) markAllRead(c *gin.Context) {
	updated, err := s.store.MarkAllNotificationsRead(c.Request.Context(), currentUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

type deleteNotificationsInput struct {
	IDs []int64 `json:"ids"`
}

// deleteNotifications removes the listed notifications, or every notification
// for the user when the body is empty.
func (s *Server) deleteNotifications(c *gin.Context) {
	var input deleteNotificationsInput
	_ = c.ShouldBindJSON(&input)

	deleted, err := s.store.DeleteNotifications(c.Request.Context(), currentUserID(c), input.IDs)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
