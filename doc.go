// Package chatsync implements the chat-sync engine which keeps a local view of
// a user's two-party conversations consistent with a remote chat service.
//
// The engine provides:
//   - Conversation directory with unread counts and last-message previews
//   - Message log for the open conversation with de-duplication and ordering
//   - Read receipts derived from the counterpart's unread counter
//   - Websocket push channel with automatic reconnect and room rejoin
//   - Local HTTP bridge and CLI built on the same controller
//
// The binary lives in cmd/chat-sync.
package chatsync
