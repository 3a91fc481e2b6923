package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"workorder-engine/internal/config"
	"workorder-engine/internal/events"
)

type ConfigHandler struct {
	Store *config.Store
	Hub   *events.Hub
	Log   zerolog.Logger
}

type validationResp struct {
	APIError
	config.Validation
}

func (h ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.Load()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "config_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, cfg)
}

// Post replaces the whole document. Every required section must be present
// and the document must validate before it is written.
func (h ConfigHandler) Post(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	missing, err := config.MissingKeys(raw)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}
	if len(missing) > 0 {
		WriteError(w, r, http.StatusBadRequest, "missing_sections", "missing required keys: "+strings.Join(missing, ", "))
		return
	}

	var incoming config.Config
	if err := json.Unmarshal(raw, &incoming); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid config: "+err.Error())
		return
	}

	if vr := config.Validate(incoming); !vr.OK() {
		WriteJSON(w, http.StatusBadRequest, validationResp{
			APIError: APIError{
				Status:    "error",
				Code:      "invalid_config",
				Message:   "configuration failed validation",
				RequestID: RequestIDFrom(r.Context()),
			},
			Validation: vr,
		})
		return
	}

	if err := h.Store.Save(incoming); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "config_error", "Failed to update configuration: "+err.Error())
		return
	}

	h.Log.Info().Str("path", h.Store.AbsPath()).Msg("config updated")
	h.Hub.Emit(RequestIDFrom(r.Context()), events.TypeConfigUpdated, nil)
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Configuration updated successfully",
	})
}

func (h ConfigHandler) Validate(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.Load()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "config_error", err.Error())
		return
	}
	vr := config.Validate(cfg)
	WriteJSON(w, http.StatusOK, map[string]any{
		"ok":       vr.OK(),
		"path":     h.Store.AbsPath(),
		"errors":   nonNil(vr.Errors),
		"warnings": nonNil(vr.Warnings),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
