package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/tempvoice/internal/domain"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", slog.Any("err", err))
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{"data": data})
}

func writeError(w http.ResponseWriter, status int, msg string, meta map[string]any) {
	body := envelope{"message": msg}
	if len(meta) > 0 {
		body["meta"] = meta
	}
	writeJSON(w, status, envelope{"error": body})
}

// statusOf maps an outcome to the response status of a mutation.
func statusOf(out domain.Outcome, created bool) int {
	switch out {
	case domain.OutcomeSuccess:
		if created {
			return http.StatusCreated
		}
		return http.StatusOK
	case domain.OutcomeDuplicate:
		return http.StatusConflict
	case domain.OutcomeNotFound:
		return http.StatusNotFound
	case domain.OutcomeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func statusOfErr(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrInvalidKind):
		return http.StatusBadRequest
	default:
		return statusOf(domain.OutcomeOf(err), false)
	}
}
