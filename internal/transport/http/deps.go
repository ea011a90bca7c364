package http

import (
	"github.com/go-verify-nosql/internal/application/account"
	"github.com/go-verify-nosql/internal/application/identity"
	"github.com/go-verify-nosql/internal/transport/http/handler"
	appmiddleware "github.com/go-verify-nosql/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps holds the services and infrastructure the router needs.
type Deps struct {
	Accounts account.Service
	Identity identity.Provider
	Tokens   appmiddleware.TokenVerifier
	// Store backs the readiness probe; nil reports ready unconditionally.
	Store handler.Pinger
	// Registry serves /metrics and receives HTTP metrics. Nil disables both.
	Registry *prometheus.Registry
}
