package httpapi

import (
	"net/http"

	"workorder-engine/internal/store"
)

type DBHandler struct {
	DB *store.DB
}

// Checkpoint flushes the WAL into the main database file. Loopback only.
func (h DBHandler) Checkpoint(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		WriteError(w, r, http.StatusForbidden, "forbidden", "checkpoint is only allowed from localhost")
		return
	}
	if err := h.DB.Checkpoint(r.Context()); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "log_store_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
