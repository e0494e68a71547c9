package services

import "context"

// Realtime event types pushed over the websocket
const (
	EventNewMessage  = "new_message"
	EventNewFollower = "new_follower"
	EventTyping      = "typing"
	EventError       = "error"
)

// Publisher delivers realtime events to connected users
type Publisher interface {
	IsOnline(userID int64) bool
	SendToUser(userID int64, message WSMessage) error
}

// PushNotifier sends a device push notification
type PushNotifier interface {
	Notify(ctx context.Context, deviceToken, title, body string) error
}
