package services

import (
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/models"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/repositories"
)

// NotificationService は通知フィード (読み取り側) のロジックを扱います。
// 発火 (fired) の遷移はここでは行いません。それはスイープ処理の仕事です。
type NotificationService struct {
	notifRepo *repositories.NotificationRepository
}

// NewNotificationService は新しいNotificationServiceを作成します。
func NewNotificationService(notifRepo *repositories.NotificationRepository) *NotificationService {
	return &NotificationService{notifRepo: notifRepo}
}

// ListFired はユーザー宛の発火済み通知を新しい順で返します。
func (s *NotificationService) ListFired(userID int) ([]*models.Notification, error) {
	return s.notifRepo.ListFiredForUser(userID)
}

// MarkRead は通知を既読にします。エラーの区別はリポジトリの
// sentinelエラー (NotFound / Forbidden / Unfired) をそのまま伝播します。
func (s *NotificationService) MarkRead(id, userID int) error {
	return s.notifRepo.MarkRead(id, userID)
}
