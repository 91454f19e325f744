package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/gatewatch/internal/database"
	"github.com/kozaktomas/gatewatch/internal/database/mock"
	"github.com/kozaktomas/gatewatch/internal/sightings"
	"github.com/kozaktomas/gatewatch/internal/timesheet"
)

var discardLogger = slog.New(slog.DiscardHandler)

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(s string) *strings.Reader {
	return strings.NewReader(s)
}

type serviceFixture struct {
	identities *mock.MockIdentityRepository
	events     *mock.MockAttendanceRepository
	sightings  *mock.MockSightingRepository
	attendance *AttendanceHandler
	unknowns   *UnknownsHandler
	gallery    *IdentitiesHandler
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	identities := mock.NewMockIdentityRepository()
	identities.AddIdentity(database.StoredIdentity{ID: "u1", Name: "Alice", Embedding: []float32{1, 0, 0}})
	events := mock.NewMockAttendanceRepository()
	sightingRepo := mock.NewMockSightingRepository()

	svc := timesheet.NewService(identities, events, timesheet.Rules{}, nil)
	registry := sightings.NewRegistry(sightingRepo, 0.5, nil, nil)

	return &serviceFixture{
		identities: identities,
		events:     events,
		sightings:  sightingRepo,
		attendance: NewAttendanceHandler(svc, discardLogger),
		unknowns:   NewUnknownsHandler(registry, discardLogger),
		gallery:    NewIdentitiesHandler(identities, discardLogger),
	}
}
