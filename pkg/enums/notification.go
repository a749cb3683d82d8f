package enums

import (
	"fmt"
	"slices"
)

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeAssignmentUpdate   NotificationType = "assignment_update"
	NotificationTypePaymentAlert       NotificationType = "payment_alert"
	NotificationTypeDeadlineAlert      NotificationType = "deadline_alert"
	NotificationTypeSystemAnnouncement NotificationType = "system_announcement"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeAssignmentUpdate,
	NotificationTypePaymentAlert,
	NotificationTypeDeadlineAlert,
	NotificationTypeSystemAnnouncement,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	return slices.Contains(validNotificationTypes, n)
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
