package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playarena/chat-sync/internal/interfaces/httpserver/handlers"
	"github.com/playarena/chat-sync/internal/interfaces/httpserver/requests"
	"github.com/playarena/chat-sync/internal/interfaces/httpserver/responses"
	chatres "github.com/playarena/chat-sync/internal/interfaces/httpserver/responses/chat"
	"github.com/playarena/chat-sync/internal/utils/platformerrors"
)

// RegisterChatRoutes registers the chat surface routes.
func RegisterChatRoutes(router gin.IRoutes, handler *handlers.ChatHandler) {
	router.GET("/status", getStatus(handler))

	router.GET("/chats", listChats(handler))
	router.POST("/chats", openWithUser(handler))
	router.POST("/chats/refresh", refreshChats(handler))
	router.POST("/chats/:id/open", openChat(handler))
	router.POST("/chats/:id/read", markRead(handler))

	router.POST("/chats/active/close", closeChat(handler))
	router.GET("/chats/active/messages", listMessages(handler))
	router.POST("/chats/active/messages", sendMessage(handler))
}

// getStatus reports connection state and the open conversation.
func getStatus(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, chatres.NewStatusResponse(handler.Snapshot()))
	}
}

// listChats returns the conversation directory with effective unread counts.
func listChats(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, chatres.NewListConversationsResponse(handler.Snapshot()))
	}
}

// refreshChats forces a directory snapshot and returns it.
func refreshChats(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := handler.Refresh(c.Request.Context())
		if err != nil {
			responses.HandleError(c, err, "failed to refresh conversations")
			return
		}
		c.JSON(http.StatusOK, chatres.NewListConversationsResponse(snap))
	}
}

// openWithUser creates or fetches the conversation with target_user_id and
// opens it.
func openWithUser(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req requests.OpenWithUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "target_user_id is required")
			return
		}

		conv, msgs, err := handler.OpenWithUser(c.Request.Context(), req.TargetUserID)
		if err != nil {
			responses.HandleError(c, err, "failed to open conversation")
			return
		}

		snap := handler.Snapshot()
		resp := chatres.OpenResponse{
			Messages: chatres.NewMessagesResponse(conv.ID, msgs, false, snap.Receipt),
		}
		if row, ok := chatres.FindConversation(snap, conv.ID); ok {
			resp.Conversation = row
		}
		c.JSON(http.StatusOK, resp)
	}
}

// openChat opens a conversation by id and returns its history.
func openChat(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		msgs, err := handler.Open(c.Request.Context(), id)
		if err != nil {
			responses.HandleError(c, err, "failed to open conversation")
			return
		}

		snap := handler.Snapshot()
		resp := chatres.OpenResponse{
			Messages: chatres.NewMessagesResponse(id, msgs, false, snap.Receipt),
		}
		if row, ok := chatres.FindConversation(snap, id); ok {
			resp.Conversation = row
		}
		c.JSON(http.StatusOK, resp)
	}
}

// markRead acknowledges read for a conversation.
func markRead(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := handler.AcknowledgeRead(c.Request.Context(), c.Param("id")); err != nil {
			responses.HandleError(c, err, "failed to acknowledge read")
			return
		}
		c.JSON(http.StatusOK, chatres.AcceptedResponse{Object: "chat.read", Status: "ok"})
	}
}

func closeChat(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := handler.Close(c.Request.Context()); err != nil {
			responses.HandleError(c, err, "failed to close conversation")
			return
		}
		c.JSON(http.StatusOK, chatres.AcceptedResponse{Object: "chat.close", Status: "ok"})
	}
}

// listMessages returns the open conversation's log.
func listMessages(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := handler.Snapshot()
		if snap.OpenConversationID == "" {
			responses.HandleNewError(c, platformerrors.ErrorTypeConflict, "no conversation open")
			return
		}
		c.JSON(http.StatusOK, chatres.NewMessagesResponse(snap.OpenConversationID, snap.Messages, snap.Loading, snap.Receipt))
	}
}

// sendMessage emits content to the open conversation. The message shows up in
// the log once the chat service echoes it back.
func sendMessage(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req requests.SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "content is required")
			return
		}

		if err := handler.Send(c.Request.Context(), req.Content); err != nil {
			responses.HandleError(c, err, "failed to send message")
			return
		}
		c.JSON(http.StatusAccepted, chatres.AcceptedResponse{Object: "chat.message", Status: "sent"})
	}
}
