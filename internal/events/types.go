package events

// Wire event names shared by the realtime gateway and its clients.

// Client -> server
const (
	ClientJoinConversation  = "join_conversation"
	ClientLeaveConversation = "leave_conversation"
	ClientSendMessage       = "send_message"
	ClientMarkRead          = "mark_read"
	ClientTypingStart       = "typing_start"
	ClientTypingStop        = "typing_stop"
	ClientPing              = "ping"
)

// Server -> client
const (
	EventNewMessage          = "new_message"
	EventMessageRead         = "message_read"
	EventMessageDeleted      = "message_deleted"
	EventTyping              = "typing"
	EventUserJoined          = "user_joined"
	EventUserLeft            = "user_left"
	EventConversationCreated = "conversation_created"
	EventConversationDeleted = "conversation_deleted"
	EventPinCreated          = "pin_created"
	EventError               = "error"
	EventPong                = "pong"
)

// Audit actions recorded through the audit sink.
const (
	AuditConversationCreated = "chat.conversation_created"
	AuditParticipantAdded    = "chat.participant_added"
	AuditParticipantRemoved  = "chat.participant_removed"
	AuditMessageSent         = "chat.message_sent"
	AuditMessageEdited       = "chat.message_edited"
	AuditMessageDeleted      = "chat.message_deleted"
	AuditPinCreated          = "chat.pin_created"
	AuditPinResolved         = "chat.pin_resolved"
	AuditPinReopened         = "chat.pin_reopened"
	AuditPinLinkAdded        = "chat.pin_link_added"
	AuditPinLinkRemoved      = "chat.pin_link_removed"
)
