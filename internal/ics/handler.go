package ics

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/pawkeep/internal/store"
)

// Handler serves a family's schedule at /calendar.ics?token=… where the
// token is the family's feed token. Unknown and missing tokens both yield
// 404 so the endpoint reveals nothing about which families exist.
func Handler(families *store.FamilyStore, pets *store.PetStore, events *store.EventStore, logger *slog.Logger) http.HandlerFunc {
	logger = logger.With("component", "ics")

	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.NotFound(w, r)
			return
		}

		family, err := families.GetByFeedToken(token)
		if err != nil {
			logger.Error("resolve feed token", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if family == nil {
			http.NotFound(w, r)
			return
		}

		famPets, err := pets.ListByFamily(family.ID)
		if err != nil {
			logger.Error("load family pets", "family", family.ID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		famEvents, err := events.ByFamily(family.ID)
		if err != nil {
			logger.Error("load family events", "family", family.ID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="pawkeep.ics"`)
		io.WriteString(w, Calendar(family.Name+" pet care", famPets, famEvents))
	}
}
