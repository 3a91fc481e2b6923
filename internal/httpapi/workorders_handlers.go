package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"workorder-engine/internal/domain"
	"workorder-engine/internal/events"
	"workorder-engine/internal/extract"
	"workorder-engine/internal/store"
)

type WorkOrdersHandler struct {
	Extractor *extract.Extractor
	Logs      *store.LogStore
	Hub       *events.Hub
	Log       zerolog.Logger
}

type processEmailReq struct {
	EmailContent string   `json:"email_content"`
	Attachments  []string `json:"attachments,omitempty"`
}

type processEmailResp struct {
	Status        string               `json:"status"`
	Message       string               `json:"message"`
	ExtractedData domain.ExtractedData `json:"extracted_data"`
}

func (h WorkOrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, domain.SampleWorkOrders())
}

// ProcessEmail extracts a work order from pasted email content and records
// the attempt under a manual_<uuid> id.
func (h WorkOrdersHandler) ProcessEmail(w http.ResponseWriter, r *http.Request) {
	var req processEmailReq
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.EmailContent) == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "email_content is required")
		return
	}

	id := "manual_" + uuid.NewString()
	data, err := h.Extractor.ExtractRaw([]byte(req.EmailContent))
	if err != nil {
		if _, lerr := h.Logs.Append(r.Context(), id, store.OutcomeError, err.Error()); lerr != nil {
			h.Log.Error().Err(lerr).Str("item_id", id).Msg("could not record attempt")
		}
		h.Hub.Emit(RequestIDFrom(r.Context()), events.TypeItemProcessed, events.ItemProcessed{
			ItemID: id, Outcome: string(store.OutcomeError), Detail: err.Error(),
		})
		code := "processing_failed"
		if errors.Is(err, extract.ErrEmptyContent) {
			code = "empty_content"
		}
		WriteError(w, r, http.StatusInternalServerError, code, "Error processing email: "+err.Error())
		return
	}

	if _, err := h.Logs.Append(r.Context(), id, store.OutcomeSuccess, ""); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "log_store_error", err.Error())
		return
	}
	h.Hub.Emit(RequestIDFrom(r.Context()), events.TypeItemProcessed, events.ItemProcessed{
		ItemID: id, Outcome: string(store.OutcomeSuccess),
	})
	h.Log.Info().
		Str("item_id", id).
		Str("priority", string(data.Priority)).
		Int("attachments", len(req.Attachments)).
		Msg("manual email processed")

	WriteJSON(w, http.StatusOK, processEmailResp{
		Status:        "success",
		Message:       "Email processed successfully",
		ExtractedData: data,
	})
}
