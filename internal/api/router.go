package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/runeberg/ansuz/internal/commands"
	"github.com/runeberg/ansuz/internal/llm"
	"github.com/runeberg/ansuz/internal/promptservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(svc *promptservice.Service, cmds *commands.Registry, providers *llm.Registry, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc, cmds, providers)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Prompt commands.
	r.Get("/prompts", h.ListPrompts)
	r.Post("/run", h.RunPrompt)

	// Providers.
	r.Get("/providers", h.ListProviders)

	// Notes are read-only here; mutations happen through prompt runs.
	r.Get("/notes/*", h.GetNote)

	return r
}
