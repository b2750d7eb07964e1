package domain

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

// Notification is a user-facing message produced by a mutating operation.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
}

func SuccessNotification(message string) Notification {
	return Notification{Kind: NotifySuccess, Message: message}
}

func ErrorNotification(message string) Notification {
	return Notification{Kind: NotifyError, Message: message}
}
