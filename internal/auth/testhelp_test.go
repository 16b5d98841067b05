package auth_test

import (
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/tillpoint/tillpoint/internal/auth"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMux(handler *auth.Handler) *chi.Mux {
	mux := chi.NewMux()
	mux.Route("/auth", handler.MountRoutes)
	return mux
}
