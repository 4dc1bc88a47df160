package interfaces

import (
	"github.com/google/wire"

	"github.com/playarena/chat-sync/internal/interfaces/httpserver"
	"github.com/playarena/chat-sync/internal/interfaces/httpserver/handlers"
	"github.com/playarena/chat-sync/internal/interfaces/httpserver/routes"
)

// InterfacesProvider provides all interface dependencies.
var InterfacesProvider = wire.NewSet(
	handlers.HandlerProvider,
	routes.RouteProvider,
	httpserver.New,
)
