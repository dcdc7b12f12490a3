package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/cwrk-planet/tempvoice/internal/domain"
	"github.com/cwrk-planet/tempvoice/internal/service"

	"github.com/go-chi/chi/v5"
)

type GeneratorAdmin interface {
	Mark(ctx context.Context, guildID, categoryID, name string) (domain.Outcome, error)
	Unmark(ctx context.Context, guildID, categoryID string) (service.UnmarkReport, error)
	Rooms(ctx context.Context, guildID, categoryID string) ([]string, error)
	List(ctx context.Context, guildID string) ([]domain.GeneratorCategory, error)
}

type UniqueAdmin interface {
	MarkCategory(ctx context.Context, guildID, categoryID, name string, kind domain.ChannelKind) (domain.Outcome, error)
	UnmarkCategory(ctx context.Context, guildID, categoryID string) (domain.Outcome, error)
	Categories(ctx context.Context, guildID string) ([]domain.UniqueCategory, error)
	Backfill(ctx context.Context, guildID, categoryID string, repair bool) (service.BackfillReport, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepReport, error)
}

type Handler struct {
	generators GeneratorAdmin
	unique     UniqueAdmin
	sweeper    Sweeper
	log        *slog.Logger
}

func NewHandler(generators GeneratorAdmin, unique UniqueAdmin, sweeper Sweeper, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		generators: generators,
		unique:     unique,
		sweeper:    sweeper,
		log:        log.With("component", "http"),
	}
}

// guildParam reads {guildID} and answers 400 itself when it is not a snowflake.
func guildParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	guildID := chi.URLParam(r, "guildID")
	if !domain.ValidSnowflake(guildID) {
		writeError(w, http.StatusBadRequest, "invalid guild id", nil)
		return "", false
	}
	return guildID, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusOfErr(err)
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), op+" failed", slog.Any("err", err))
	}
	writeError(w, status, op+" failed", map[string]any{"reason": err.Error()})
}

// GET /guilds/{guildID}/generators
func (h *Handler) ListGenerators(w http.ResponseWriter, r *http.Request) {
	guildID, ok := guildParam(w, r)
	if !ok {
		return
	}
	gens, err := h.generators.List(r.Context(), guildID)
	if err != nil {
		h.fail(w, r, "list generators", err)
		return
	}
	writeData(w, http.StatusOK, toGeneratorItems(gens))
}

// POST /guilds/{guildID}/generators
func (h *Handler) MarkGenerator(w http.ResponseWriter, r *http.Request) {
	guildID, ok := guildParam(w, r)
	if !ok {
		return
	}
	var in MarkGeneratorRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", nil)
		return
	}
	in.CategoryID = strings.TrimSpace(in.CategoryID)

	out, err := h.generators.Mark(r.Context(), guildID, in.CategoryID, strings.TrimSpace(in.Name))
	if err != nil {
		h.fail(w, r, "mark generator", err)
		return
	}
	writeData(w, statusOf(out, true), OutcomeResponse{CategoryID: in.CategoryID, Outcome: out.String()})
}

// DELETE /guilds/{guildID}/generators/{categoryID}
func (h *Handler) UnmarkGenerator(w http.ResponseWriter, r *http.Request) {
	guildID, ok := guildParam(w, r)
	if !ok {
		return
	}
	rep, err := h.generators.Unmark(r.Context(), guildID, chi.URLParam(r, "categoryID"))
	if err != nil {
		h.fail(w, r, "unmark generator", err)
		return
	}
	status := http.StatusOK
	if rep.Outcome == domain.OutcomeNotFound.String() {
		status = http.StatusNotFound
	}
	writeData(w, status, rep)
}

// GET /guilds/{guildID}/generators/{categoryID}/rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	guildID, ok := guildParam(w, r)
	if !ok {
		return
	}
	categoryID := chi.URLParam(r, "categoryID")
	rooms, err := h.generators.Rooms(r.Context(), guildID, categoryID)
	if err != nil {
		h.fail(w, r, "list rooms", err)
		return
	}
	if rooms == nil {
		rooms = []string{}
	}
	writeData(w, http.StatusOK, RoomsResponse{CategoryID: categoryID, Items: rooms})
}

// GET /guilds/{guildID}/unique-categories
func (h *Handler) ListUniqueCategories(w http.ResponseWriter, r *http.Request) {
	guildID, ok := guildParam(w, r)
	if !ok {
		return
	}
	cats, err := h.unique.Categories(r.Context(), guildID)
	if err != nil {
		h.fail(w, r, "list unique categories", err)
		return
	}
	writeData(w, http.StatusOK, toUniqueCategoryItems(cats))
}

// POST /guilds/{guildID}/unique-categories
func (h *Handler) MarkUniqueCategory(w http.ResponseWriter, r *http.Request) {
	guildID, ok := guildParam(w, r)
	if !ok {
		return
	}
	var in MarkUniqueRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", nil)
		return
	}
	in.CategoryID = strings.TrimSpace(in.CategoryID)

	kind := domain.ChannelKind(strings.ToLower(strings.TrimSpace(in.Kind)))
	out, err := h.unique.MarkCategory(r.Context(), guildID, in.CategoryID, strings.TrimSpace(in.Name), kind)
	if err != nil {
		h.fail(w, r, "mark unique category", err)
		return
	}
	writeData(w, statusOf(out, true), OutcomeResponse{CategoryID: in.CategoryID, Outcome: out.String()})
}

// DELETE /guilds/{guildID}/unique-categories/{categoryID}
func (h *Handler) UnmarkUniqueCategory(w http.ResponseWriter, r *http.Request) {
	guildID, ok := guildParam(w, r)
	if !ok {
		return
	}
	categoryID := chi.URLParam(r, "categoryID")
	out, err := h.unique.UnmarkCategory(r.Context(), guildID, categoryID)
	if err != nil {
		h.fail(w, r, "unmark unique category", err)
		return
	}
	writeData(w, statusOf(out, false), OutcomeResponse{CategoryID: categoryID, Outcome: out.String()})
}

// POST /guilds/{guildID}/unique-categories/{categoryID}/backfill?repair=
func (h *Handler) Backfill(w http.ResponseWriter, r *http.Request) {
	guildID, ok := guildParam(w, r)
	if !ok {
		return
	}
	repair := false
	if s := r.URL.Query().Get("repair"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "repair must be a boolean", nil)
			return
		}
		repair = v
	}

	rep, err := h.unique.Backfill(r.Context(), guildID, chi.URLParam(r, "categoryID"), repair)
	if err != nil {
		h.fail(w, r, "backfill", err)
		return
	}
	writeData(w, http.StatusOK, rep)
}

// POST /reconcile
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rep, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		h.fail(w, r, "reconcile", err)
		return
	}
	writeData(w, http.StatusOK, rep)
}
