package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Karim-Nady/Smart-Task-Reminder/internal/models"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/repositories"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/services"
)

// NotificationHandler は通知フィード関連のハンドラーを管理します。
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler は新しいNotificationHandlerを作成します。
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// GetNotificationsHandler は発火済みの通知を新しい順で返します。
// 未発火の通知はフィードに出しません。
func (h *NotificationHandler) GetNotificationsHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	notifications, err := h.notificationService.ListFired(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	c.JSON(http.StatusOK, notifications)
}

// MarkNotificationReadHandler は通知を既読にします。
// すでに既読の通知をもう一度既読にしてもエラーにはなりません (冪等)。
func (h *NotificationHandler) MarkNotificationReadHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(id, userID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotificationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		case errors.Is(err, repositories.ErrNotificationForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		case errors.Is(err, repositories.ErrNotificationUnfired):
			c.JSON(http.StatusConflict, gin.H{"error": "Notification has not fired yet"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification read"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
