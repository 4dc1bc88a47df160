package chatapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/playarena/chat-sync/internal/domain/chat"
	"github.com/playarena/chat-sync/internal/infrastructure/chatwire"
	"github.com/playarena/chat-sync/internal/infrastructure/metrics"
	"github.com/playarena/chat-sync/internal/infrastructure/observability"
)

// APIError is a non-2xx answer from the chat service.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat api %s: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("chat api %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// NotFound reports whether the service answered 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client implements chat.Remote on top of the chat service REST API.
type Client struct {
	httpClient *resty.Client
	log        zerolog.Logger
}

// NewClient creates a Resty-backed client. token is sent as a bearer
// credential on every request when non-empty.
func NewClient(baseURL, token string, timeout time.Duration, log zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	if token != "" {
		httpClient.SetAuthToken(token)
	}
	return &Client{
		httpClient: httpClient,
		log:        log.With().Str("component", "chat-api-client").Logger(),
	}
}

// ListConversations calls GET /chats.
func (c *Client) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	var body chatwire.ListConversationsResponse
	if err := c.do(ctx, "list_conversations", http.MethodGet, "/chats", nil, &body); err != nil {
		return nil, err
	}
	return chatwire.ConversationsToDomain(body.Chats), nil
}

// CreateOrFetchConversation calls POST /chats. The service returns the
// existing chat when one already exists for the pair.
func (c *Client) CreateOrFetchConversation(ctx context.Context, targetUserID string) (*chat.Conversation, error) {
	if strings.TrimSpace(targetUserID) == "" {
		return nil, chat.ErrEmptyTargetUser
	}
	var body chatwire.ConversationResponse
	req := chatwire.CreateConversationRequest{TargetUserID: targetUserID}
	if err := c.do(ctx, "create_conversation", http.MethodPost, "/chats", req, &body); err != nil {
		return nil, err
	}
	if body.Chat == nil {
		return nil, &APIError{Operation: "create_conversation", StatusCode: http.StatusOK, Message: "response has no chat"}
	}
	conv := body.Chat.ToDomain()
	return &conv, nil
}

// ListMessages calls GET /chats/:id/messages.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, chat.ErrEmptyConversationID
	}
	var body chatwire.ListMessagesResponse
	path := "/chats/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, "list_messages", http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	return chatwire.MessagesToDomain(body.Messages, conversationID), nil
}

// AcknowledgeRead calls POST /chats/:id/read.
func (c *Client) AcknowledgeRead(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return chat.ErrEmptyConversationID
	}
	path := "/chats/" + url.PathEscape(conversationID) + "/read"
	return c.do(ctx, "acknowledge_read", http.MethodPost, path, nil, nil)
}

func (c *Client) do(ctx context.Context, operation, method, path string, reqBody, result any) (err error) {
	ctx, span := observability.Tracer().Start(ctx, "chatapi."+operation)
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	)
	start := time.Now()
	defer func() {
		metrics.RecordAPIRequest(operation, err, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var apiErr chatwire.ErrorResponse
	request := c.httpClient.R().
		SetContext(ctx).
		SetError(&apiErr)
	if reqBody != nil {
		request.SetBody(reqBody)
	}
	if result != nil {
		request.SetResult(result)
	}

	resp, err := request.Execute(method, path)
	if err != nil {
		c.log.Warn().Err(err).Str("operation", operation).Msg("chat api request failed")
		return fmt.Errorf("chat api %s: %w", operation, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))

	if resp.IsError() {
		msg := apiErr.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		c.log.Warn().
			Str("operation", operation).
			Int("status", resp.StatusCode()).
			Str("message", msg).
			Msg("chat api returned error")
		return &APIError{Operation: operation, StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}

// Ensure interface compliance.
var _ chat.Remote = (*Client)(nil)
