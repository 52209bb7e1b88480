package handlers

import (
	"time"

	"github.com/monocle-dev/workspace/internal/auth"
	"github.com/monocle-dev/workspace/internal/store"
	"go.uber.org/zap"
)

type Config struct {
	// CookieDomain is the bare host for the auth cookie; empty means host-only.
	CookieDomain  string
	SecureCookies bool
	// AutoRegister creates an account on first login with an unknown email.
	AutoRegister bool
}

// Handler serves the JSON API on top of a store and the session manager.
type Handler struct {
	store    store.Store
	sessions *auth.Sessions
	hub      *Hub
	log      *zap.SugaredLogger
	cfg      Config
	now      func() time.Time
}

func New(st store.Store, sessions *auth.Sessions, hub *Hub, log *zap.SugaredLogger, cfg Config) *Handler {
	return &Handler{
		store:    st,
		sessions: sessions,
		hub:      hub,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (h *Handler) Hub() *Hub { return h.hub }
