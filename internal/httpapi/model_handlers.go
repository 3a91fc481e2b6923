package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"workorder-engine/internal/config"
)

// ModelHandler fronts the text-generation model. No model is loaded in this
// build, so chat replies are canned and streamed in chunks.
type ModelHandler struct {
	Config     *config.Store
	ChunkDelay time.Duration
}

type chatReq struct {
	Message string `json:"message"`
}

func (h ModelHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatReq
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "No message provided")
		return
	}

	parts := []string{
		"I'm processing your message: '",
		req.Message,
		"'. This is a simulated response from the engine. ",
		"A loaded model would generate this reply instead.",
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	for i, p := range parts {
		if i > 0 && h.ChunkDelay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(h.ChunkDelay):
			}
		}
		if _, err := fmt.Fprint(w, p); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (h ModelHandler) Status(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Config.Load()
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{
			"model_loaded":           false,
			"model_path":             "unknown",
			"transformers_available": false,
			"error":                  err.Error(),
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"model_loaded":           false,
		"model_path":             cfg.ModelPath,
		"transformers_available": false,
	})
}
