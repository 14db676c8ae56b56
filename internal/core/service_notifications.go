package core

import (
	"context"
	"fmt"
	"time"

	"taskmate/pkg/domain"
)

// CreateNotification prepends a notification for a user.
func (s *Service) CreateNotification(ctx context.Context, n Notification) (Notification, Result, error) {
	var created Notification
	res, err := s.run(ctx, "create_notification", func(tx Transaction) (string, error) {
		if err := required("userId", n.UserID); err != nil {
			return "", err
		}
		if !n.Type.Valid() {
			return "", ValidationError{Field: "type", Message: "unknown notification type " + string(n.Type)}
		}
		var err error
		created, err = tx.CreateNotification(n)
		return created.ID, err
	})
	return created, res, err
}

// MarkNotificationRead flags one notification as read.
func (s *Service) MarkNotificationRead(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "mark_notification_read", func(tx Transaction) (string, error) {
		_, err := tx.UpdateNotification(id, func(n *Notification) error {
			n.IsRead = true
			return nil
		})
		return id, err
	})
}

// MarkAllNotificationsRead flags every unread notification of userID and
// reports how many changed.
func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string) (int, Result, error) {
	count := 0
	res, err := s.run(ctx, "mark_notifications_read", func(tx Transaction) (string, error) {
		for _, n := range tx.Snapshot().ListNotifications() {
			if n.UserID != userID || n.IsRead {
				continue
			}
			if _, err := tx.UpdateNotification(n.ID, func(n *Notification) error {
				n.IsRead = true
				return nil
			}); err != nil {
				return userID, err
			}
			count++
		}
		return userID, nil
	})
	if err != nil {
		return 0, res, err
	}
	return count, res, nil
}

// DeleteNotification removes a notification.
func (s *Service) DeleteNotification(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_notification", func(tx Transaction) (string, error) {
		return id, tx.DeleteNotification(id)
	})
}

// NotifyApproachingDeadlines sends deadline_approaching to the assignee of
// every open task due between now and now+window. A task is notified at
// most once. It returns the number of notifications created.
func (s *Service) NotifyApproachingDeadlines(ctx context.Context, now time.Time, window time.Duration) (int, Result, error) {
	count := 0
	res, err := s.run(ctx, "notify_deadlines", func(tx Transaction) (string, error) {
		view := tx.Snapshot()
		notified := map[string]bool{}
		for _, n := range view.ListNotifications() {
			if n.Type == domain.NotificationDeadlineApproaching {
				notified[n.RelatedID] = true
			}
		}
		for _, task := range DueSoon(view.ListTasks(), now, window) {
			if task.AssigneeID == "" || notified[task.ID] {
				continue
			}
			if _, err := tx.CreateNotification(Notification{
				UserID:    task.AssigneeID,
				Type:      domain.NotificationDeadlineApproaching,
				Title:     "Deadline approaching",
				Message:   fmt.Sprintf("%q is due %s", task.Title, task.Deadline),
				RelatedID: task.ID,
			}); err != nil {
				return task.ID, err
			}
			notified[task.ID] = true
			count++
		}
		return "", nil
	})
	if err != nil {
		return 0, res, err
	}
	return count, res, nil
}
