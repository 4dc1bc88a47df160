package chat

import "errors"

var (
	// ErrNoConversationOpen is returned when an operation needs an open conversation.
	ErrNoConversationOpen = errors.New("no conversation open")
	// ErrEmptyMessage is returned when sending blank content.
	ErrEmptyMessage = errors.New("message content is empty")
	// ErrEmptyConversationID is returned when a conversation id is blank.
	ErrEmptyConversationID = errors.New("conversation id is empty")
	// ErrEmptyTargetUser is returned when create-or-fetch names no participant.
	ErrEmptyTargetUser = errors.New("target user id is empty")
	// ErrConversationNotFound is returned for ids absent from the directory.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrNotConnected is returned when a push signal is attempted while disconnected.
	ErrNotConnected = errors.New("push channel not connected")
	// ErrSuperseded is returned when a newer open replaced the request's conversation.
	ErrSuperseded = errors.New("superseded by a newer request")
	// ErrStopped is returned once the controller has shut down.
	ErrStopped = errors.New("controller stopped")
)
