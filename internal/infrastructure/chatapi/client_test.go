package chatapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playarena/chat-sync/internal/domain/chat"
	"github.com/playarena/chat-sync/pkg/testhelpers"
)

func newClient(server *testhelpers.ChatServer, token string) *Client {
	return NewClient(server.APIURL(), token, 2*time.Second, zerolog.Nop())
}

func TestClient_CreateOrFetchIsIdempotent(t *testing.T) {
	server := testhelpers.NewChatServer(t)
	aliceToken := server.AddUser("u-alice", "alice")
	server.AddUser("u-bob", "bob")
	client := newClient(server, aliceToken)
	ctx := context.Background()

	first, err := client.CreateOrFetchConversation(ctx, "u-bob")
	require.NoError(t, err)
	second, err := client.CreateOrFetchConversation(ctx, "u-bob")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.HasParticipant("u-alice"))
	assert.True(t, first.HasParticipant("u-bob"))

	convs, err := client.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, first.ID, convs[0].ID)
}

func TestClient_ListMessagesAndAcknowledge(t *testing.T) {
	server := testhelpers.NewChatServer(t)
	aliceToken := server.AddUser("u-alice", "alice")
	server.AddUser("u-bob", "bob")
	chatID := server.SeedConversation("u-alice", "u-bob")
	server.PostMessage("u-bob", chatID, "one")
	server.PostMessage("u-bob", chatID, "two")
	client := newClient(server, aliceToken)
	ctx := context.Background()

	convs, err := client.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 2, convs[0].Unread("u-alice"))
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, "two", convs[0].LastMessage.Content)
	assert.Equal(t, "u-bob", convs[0].LastMessage.SenderID)

	msgs, err := client.ListMessages(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, chatID, msgs[1].ConversationID)
	assert.Equal(t, "bob", msgs[1].Sender.DisplayName)

	require.NoError(t, client.AcknowledgeRead(ctx, chatID))
	assert.Zero(t, server.Unread(chatID, "u-alice"))
	assert.Len(t, server.ReadAcks(), 1)
}

func TestClient_Errors(t *testing.T) {
	server := testhelpers.NewChatServer(t)
	aliceToken := server.AddUser("u-alice", "alice")
	ctx := context.Background()

	t.Run("unknown target user", func(t *testing.T) {
		_, err := newClient(server, aliceToken).CreateOrFetchConversation(ctx, "u-nobody")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.NotFound())
		assert.Equal(t, "User not found", apiErr.Message)
	})

	t.Run("unknown chat", func(t *testing.T) {
		err := newClient(server, aliceToken).AcknowledgeRead(ctx, "missing")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})

	t.Run("missing credential", func(t *testing.T) {
		_, err := newClient(server, "").ListConversations(ctx)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Contains(t, apiErr.Error(), "Not authorized")
	})

	t.Run("blank arguments", func(t *testing.T) {
		client := newClient(server, aliceToken)
		_, err := client.CreateOrFetchConversation(ctx, " ")
		assert.ErrorIs(t, err, chat.ErrEmptyTargetUser)
		_, err = client.ListMessages(ctx, "")
		assert.ErrorIs(t, err, chat.ErrEmptyConversationID)
		assert.ErrorIs(t, client.AcknowledgeRead(ctx, ""), chat.ErrEmptyConversationID)
	})
}

func TestClient_ContextCancellation(t *testing.T) {
	server := testhelpers.NewChatServer(t)
	aliceToken := server.AddUser("u-alice", "alice")
	release := server.HoldConversations()
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newClient(server, aliceToken).ListConversations(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "t", time.Second, zerolog.Nop()).ListConversations(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Message)
}
