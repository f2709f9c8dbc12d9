package domain

// EventType tags a pushed envelope. Clients treat unknown future types as
// ignorable.
type EventType string

const (
	EventNewMessage           EventType = "NEW_MESSAGE"
	EventConversationClaimed  EventType = "CONVERSATION_CLAIMED"
	EventConversationReleased EventType = "CONVERSATION_RELEASED"
	EventNewConversation      EventType = "NEW_CONVERSATION"
	EventUnreadCount          EventType = "UNREAD_COUNT"
)

// DispatchNotification is the wire envelope pushed over a live stream. Flat
// shape with omitempty: only the fields relevant to the event type are set.
type DispatchNotification struct {
	Type           EventType `json:"type"`
	ConversationID int64     `json:"conversationId,omitempty"`
	Message        string    `json:"message,omitempty"`
	FromAddress    string    `json:"fromAddress,omitempty"`
	Channel        Channel   `json:"channel,omitempty"`
	DispatcherID   int64     `json:"dispatcherId,omitempty"`
	DispatcherName string    `json:"dispatcherName,omitempty"`
}

// UnreadCountUpdate is the envelope for unread-counter refreshes. Count is
// always serialized; zero is a meaningful value.
type UnreadCountUpdate struct {
	Type  EventType `json:"type"`
	Count int       `json:"count"`
}
