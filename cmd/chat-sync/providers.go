package main

import (
	"github.com/rs/zerolog"

	"github.com/playarena/chat-sync/internal/application/chatsync"
	"github.com/playarena/chat-sync/internal/config"
	"github.com/playarena/chat-sync/internal/domain/chat"
	"github.com/playarena/chat-sync/internal/domain/retry"
	"github.com/playarena/chat-sync/internal/infrastructure/chatapi"
	"github.com/playarena/chat-sync/internal/infrastructure/pushconn"
	"github.com/playarena/chat-sync/internal/infrastructure/session"
)

// ProvideIdentity resolves the session user.
func ProvideIdentity(cfg *config.Config) (chat.Identity, error) {
	return session.FromConfig(cfg)
}

// ProvideRemote provides the REST client for the chat service.
func ProvideRemote(cfg *config.Config, identity chat.Identity, log zerolog.Logger) chat.Remote {
	return chatapi.NewClient(cfg.APIBaseURL, identity.Token, cfg.RequestTimeout, log)
}

// ProvideTransport provides the websocket push connection.
func ProvideTransport(cfg *config.Config, log zerolog.Logger) chatsync.Transport {
	return pushconn.New(pushconn.Options{
		URL:              cfg.PushURL,
		Policy:           retry.ReconnectPolicy(cfg.ReconnectInitial, cfg.ReconnectMax, cfg.ReconnectJitter),
		PingInterval:     cfg.PingInterval,
		WriteTimeout:     cfg.WriteTimeout,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}, log)
}

// ProvideController provides the synchronization controller.
func ProvideController(
	cfg *config.Config,
	identity chat.Identity,
	remote chat.Remote,
	transport chatsync.Transport,
	log zerolog.Logger,
) (*chatsync.Controller, error) {
	return chatsync.New(identity, remote, transport, chatsync.Options{
		RequestTimeout: cfg.RequestTimeout,
		DedupCacheSize: cfg.DedupCacheSize,
		UpdateBuffer:   cfg.UpdateBuffer,
	}, log)
}

// ProvideService exposes the controller as the chat surface.
func ProvideService(controller *chatsync.Controller) chatsync.Service {
	return controller
}

// newController builds the engine without the HTTP bridge.
func newController(cfg *config.Config, log zerolog.Logger) (*chatsync.Controller, error) {
	identity, err := ProvideIdentity(cfg)
	if err != nil {
		return nil, err
	}
	remote := ProvideRemote(cfg, identity, log)
	transport := ProvideTransport(cfg, log)
	return ProvideController(cfg, identity, remote, transport, log)
}
