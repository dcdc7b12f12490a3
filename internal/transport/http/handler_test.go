package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/tempvoice/internal/auth"
	"github.com/cwrk-planet/tempvoice/internal/domain"
	"github.com/cwrk-planet/tempvoice/internal/service"
	httpmw "github.com/cwrk-planet/tempvoice/internal/transport/http/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerators struct {
	markOut   domain.Outcome
	markErr   error
	unmarkRep service.UnmarkReport
	gens      []domain.GeneratorCategory
	rooms     []string

	marked []string
}

func (f *fakeGenerators) Mark(_ context.Context, guildID, categoryID, name string) (domain.Outcome, error) {
	f.marked = append(f.marked, guildID+"/"+categoryID+"/"+name)
	return f.markOut, f.markErr
}

func (f *fakeGenerators) Unmark(context.Context, string, string) (service.UnmarkReport, error) {
	return f.unmarkRep, nil
}

func (f *fakeGenerators) Rooms(context.Context, string, string) ([]string, error) {
	return f.rooms, nil
}

func (f *fakeGenerators) List(context.Context, string) ([]domain.GeneratorCategory, error) {
	return f.gens, nil
}

type fakeUnique struct {
	kind   domain.ChannelKind
	repair bool
	err    error
}

func (f *fakeUnique) MarkCategory(_ context.Context, _, _, _ string, kind domain.ChannelKind) (domain.Outcome, error) {
	f.kind = kind
	if f.err != nil {
		return domain.OutcomeUnexpected, f.err
	}
	return domain.OutcomeSuccess, nil
}

func (f *fakeUnique) UnmarkCategory(context.Context, string, string) (domain.Outcome, error) {
	return domain.OutcomeNotFound, nil
}

func (f *fakeUnique) Categories(context.Context, string) ([]domain.UniqueCategory, error) {
	return []domain.UniqueCategory{{CategoryID: "700", Name: "Tickets", Kind: domain.KindForum}}, nil
}

func (f *fakeUnique) Backfill(_ context.Context, _, _ string, repair bool) (service.BackfillReport, error) {
	f.repair = repair
	return service.BackfillReport{Created: 2, Skipped: 1}, nil
}

type fakeSweeper struct{ calls int }

func (f *fakeSweeper) Sweep(context.Context) (service.SweepReport, error) {
	f.calls++
	return service.SweepReport{Checked: 3, Removed: 1, Kept: 2}, nil
}

type apiEnv struct {
	gens    *fakeGenerators
	unique  *fakeUnique
	sweeper *fakeSweeper
	router  http.Handler
	token   string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	signer, err := auth.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)
	token, err := signer.Sign("admin", time.Now())
	require.NoError(t, err)

	env := &apiEnv{
		gens:    &fakeGenerators{},
		unique:  &fakeUnique{},
		sweeper: &fakeSweeper{},
		token:   token,
	}
	h := NewHandler(env.gens, env.unique, env.sweeper, nil)
	env.router = NewRouter(Deps{Handler: h, Tokens: signer})
	return env
}

func (e *apiEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealthzIsPublic(t *testing.T) {
	env := newAPIEnv(t)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(httpmw.HeaderRequestID))
}

func TestAuthRequired(t *testing.T) {
	env := newAPIEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/guilds/1/generators", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/guilds/1/generators", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestIDForwarded(t *testing.T) {
	env := newAPIEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(httpmw.HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(httpmw.HeaderRequestID))
}

func TestListGenerators(t *testing.T) {
	env := newAPIEnv(t)
	env.gens.gens = []domain.GeneratorCategory{{CategoryID: "100", GuildID: "1", Name: "Voice"}}

	rec, body := env.do(t, http.MethodGet, "/guilds/1/generators", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := body["data"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "100", items[0].(map[string]any)["category_id"])
}

func TestInvalidGuild(t *testing.T) {
	env := newAPIEnv(t)
	rec, _ := env.do(t, http.MethodGet, "/guilds/abc/generators", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkGeneratorStatus(t *testing.T) {
	cases := []struct {
		name   string
		out    domain.Outcome
		err    error
		status int
	}{
		{"created", domain.OutcomeSuccess, nil, http.StatusCreated},
		{"duplicate", domain.OutcomeDuplicate, nil, http.StatusConflict},
		{"invalid id", domain.OutcomeUnexpected, domain.ErrInvalidID, http.StatusBadRequest},
		{"not a category", domain.OutcomeNotFound, fmt.Errorf("300: %w: %w", domain.ErrNotFound, domain.ErrNotCategory), http.StatusNotFound},
		{"forbidden", domain.OutcomeForbidden, fmt.Errorf("get category: %w", domain.ErrForbidden), http.StatusForbidden},
		{"broken", domain.OutcomeUnexpected, fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newAPIEnv(t)
			env.gens.markOut, env.gens.markErr = tc.out, tc.err

			rec, _ := env.do(t, http.MethodPost, "/guilds/1/generators", `{"category_id":" 100 ","name":"Voice"}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, []string{"1/100/Voice"}, env.gens.marked)
		})
	}
}

func TestMarkGeneratorBadJSON(t *testing.T) {
	env := newAPIEnv(t)
	rec, _ := env.do(t, http.MethodPost, "/guilds/1/generators", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.gens.marked)
}

func TestUnmarkGenerator(t *testing.T) {
	env := newAPIEnv(t)
	env.gens.unmarkRep = service.UnmarkReport{
		CategoryID: "100",
		Outcome:    domain.OutcomeSuccess.String(),
		Removed:    []string{"201"},
		Failed:     map[string]string{"202": "forbidden"},
	}
	rec, body := env.do(t, http.MethodDelete, "/guilds/1/generators/100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, []any{"201"}, data["removed"])
	assert.Equal(t, map[string]any{"202": "forbidden"}, data["failed"])

	env.gens.unmarkRep = service.UnmarkReport{CategoryID: "100", Outcome: domain.OutcomeNotFound.String()}
	rec, _ = env.do(t, http.MethodDelete, "/guilds/1/generators/100", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRoomsEmpty(t *testing.T) {
	env := newAPIEnv(t)
	rec, body := env.do(t, http.MethodGet, "/guilds/1/generators/100/rooms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["data"].(map[string]any)["items"])
}

func TestUniqueCategories(t *testing.T) {
	env := newAPIEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/guilds/1/unique-categories", `{"category_id":"700","kind":"Forum"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.KindForum, env.unique.kind)

	env.unique.err = fmt.Errorf("%w %q", domain.ErrInvalidKind, "stage")
	rec, _ = env.do(t, http.MethodPost, "/guilds/1/unique-categories", `{"category_id":"700","kind":"stage"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := env.do(t, http.MethodGet, "/guilds/1/unique-categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "forum", body["data"].([]any)[0].(map[string]any)["kind"])

	rec, _ = env.do(t, http.MethodDelete, "/guilds/1/unique-categories/700", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBackfill(t *testing.T) {
	env := newAPIEnv(t)

	rec, body := env.do(t, http.MethodPost, "/guilds/1/unique-categories/700/backfill?repair=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.unique.repair)
	assert.Equal(t, float64(2), body["data"].(map[string]any)["created"])

	rec, _ = env.do(t, http.MethodPost, "/guilds/1/unique-categories/700/backfill?repair=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconcile(t *testing.T) {
	env := newAPIEnv(t)
	rec, body := env.do(t, http.MethodPost, "/reconcile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.sweeper.calls)
	assert.Equal(t, float64(3), body["data"].(map[string]any)["checked"])
}
