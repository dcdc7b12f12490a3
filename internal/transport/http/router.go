package http

import (
	"log/slog"
	"net/http"
	"time"

	httpmw "github.com/cwrk-planet/tempvoice/internal/transport/http/middleware"
	"github.com/cwrk-planet/tempvoice/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Deps struct {
	Handler     *Handler
	Tokens      httpmw.TokenVerifier
	WS          *ws.Server
	CORSOrigins []string
	Log         *slog.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httpmw.RequestID)
	r.Use(httpmw.Logging(d.Log))

	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", httpmw.HeaderRequestID},
			ExposedHeaders:   []string{httpmw.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// websocket сам проверяет access_token из query
	if d.WS != nil {
		r.Get("/ws/guilds/{guildID}/events", d.WS.HandleWS)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.Auth(d.Tokens))
		pr.Use(middlewareChi.Timeout(60 * time.Second))

		pr.Post("/reconcile", d.Handler.Reconcile)

		pr.Route("/guilds/{guildID}", func(gr chi.Router) {
			gr.Route("/generators", func(rt chi.Router) {
				rt.Get("/", d.Handler.ListGenerators)
				rt.Post("/", d.Handler.MarkGenerator)
				rt.Delete("/{categoryID}", d.Handler.UnmarkGenerator)
				rt.Get("/{categoryID}/rooms", d.Handler.ListRooms)
			})
			gr.Route("/unique-categories", func(rt chi.Router) {
				rt.Get("/", d.Handler.ListUniqueCategories)
				rt.Post("/", d.Handler.MarkUniqueCategory)
				rt.Delete("/{categoryID}", d.Handler.UnmarkUniqueCategory)
				rt.Post("/{categoryID}/backfill", d.Handler.Backfill)
			})
		})
	})

	return r
}
