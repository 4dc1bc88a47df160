package chat

// Subscription is a registered event handler.
// Unsubscribe is idempotent and safe to call on an already removed handler.
type Subscription interface {
	Unsubscribe()
}

// ConnectionState is the push channel connectivity.
type ConnectionState string

const (
	ConnectionConnected    ConnectionState = "connected"
	ConnectionDisconnected ConnectionState = "disconnected"
)

// ConnectionEvent is published whenever the push channel goes up or down.
type ConnectionEvent struct {
	State ConnectionState
	// Reconnect is true when the channel was established before in this session.
	Reconnect bool
}

// Push event names on the wire.
const (
	EventDirectoryChanged = "chat_updated"
	EventDirectoryAlias   = "directory_changed"
	EventReceiveMessage   = "receive_message"
	EventJoinChat         = "join_chat"
	EventLeaveChat        = "leave_chat"
	EventSendMessage      = "send_message"
)
