//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/playarena/chat-sync/internal/config"
	"github.com/playarena/chat-sync/internal/interfaces"
)

// ProviderSet is the wire provider set for the application.
var ProviderSet = wire.NewSet(
	// Infrastructure providers
	ProvideIdentity,
	ProvideRemote,
	ProvideTransport,

	// Application providers
	ProvideController,
	ProvideService,

	// Interface providers
	interfaces.InterfacesProvider,

	NewApplication,
)

// CreateApplication creates the application with all dependencies wired.
func CreateApplication(cfg *config.Config, log zerolog.Logger) (*Application, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
