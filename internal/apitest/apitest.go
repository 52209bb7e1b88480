// Package apitest wires a complete API server over an in-memory store for tests.
package apitest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/workspace/internal/auth"
	"github.com/monocle-dev/workspace/internal/handlers"
	"github.com/monocle-dev/workspace/internal/middleware"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/router"
	"github.com/monocle-dev/workspace/internal/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const Secret = "test-secret"

var BaseTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

type Server struct {
	Engine   *gin.Engine
	Store    *store.Memory
	Sessions *auth.Sessions
	Hub      *handlers.Hub
}

type Options struct {
	AutoRegister bool
	LoginRate    float64
	LoginBurst   int
}

// Dataset holds twelve projects cycling through the statuses. Project "1" has two
// members and two activities.
func Dataset() store.Dataset {
	data := store.Dataset{
		Members:    map[string][]models.Member{},
		Activities: map[string][]models.Activity{},
	}
	for i := 1; i <= 12; i++ {
		name := fmt.Sprintf("Project %02d", i)
		if i == 2 {
			name = "Website Redesign"
		}
		data.Projects = append(data.Projects, models.Project{
			ID:          fmt.Sprint(i),
			Name:        name,
			Description: "Description " + fmt.Sprint(i),
			Status:      models.ProjectStatuses[(i-1)%len(models.ProjectStatuses)],
			Owner:       "Jane Cooper",
			CreatedAt:   BaseTime,
			UpdatedAt:   BaseTime,
		})
	}
	data.Members["1"] = []models.Member{
		{ID: "m1", Name: "Jane Cooper", Email: "jane@example.com", Role: "Owner"},
		{ID: "m2", Name: "Wade Warren", Email: "wade@example.com", Role: "Developer"},
	}
	data.Activities["1"] = []models.Activity{
		{ID: "a2", Type: "update", Description: "Updated the roadmap", User: "Wade Warren", Timestamp: BaseTime.Add(time.Hour)},
		{ID: "a1", Type: "create", Description: "Created the project", User: "Jane Cooper", Timestamp: BaseTime},
	}
	return data
}

func New(t testing.TB, opts Options) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if opts.LoginRate == 0 {
		opts.LoginRate = 100
	}
	if opts.LoginBurst == 0 {
		opts.LoginBurst = 100
	}

	log := zap.NewNop().Sugar()

	st := store.NewMemory()
	require.NoError(t, st.Seed(context.Background(), Dataset()))

	signer, err := auth.NewSigner(Secret)
	require.NoError(t, err)
	sessions := auth.NewSessions(auth.NewMemorySessionStore(), signer)

	hub := handlers.NewHub(nil, log)
	t.Cleanup(hub.Close)

	h := handlers.New(st, sessions, hub, log, handlers.Config{AutoRegister: opts.AutoRegister})

	engine := router.NewRouter(router.Deps{
		Handler:      h,
		Sessions:     sessions,
		Users:        st,
		LoginLimiter: middleware.NewIPRateLimiter(opts.LoginRate, opts.LoginBurst),
		Log:          log,
	})

	return &Server{Engine: engine, Store: st, Sessions: sessions, Hub: hub}
}
