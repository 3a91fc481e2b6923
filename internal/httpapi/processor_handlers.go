package httpapi

import (
	"errors"
	"net/http"

	"workorder-engine/internal/processor"
)

type ProcessorHandler struct {
	Processor ProcessorControl
}

func (h ProcessorHandler) Start(w http.ResponseWriter, r *http.Request) {
	res, err := h.Processor.Start()
	if err != nil {
		code := "processor_error"
		var serr *processor.StartupError
		if errors.As(err, &serr) {
			code = "processor_startup"
		}
		WriteError(w, r, http.StatusInternalServerError, code, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (h ProcessorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Processor.Stop())
}

func (h ProcessorHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.Processor.Status(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "log_store_error", err.Error())
		return
	}
	if st.Logs == nil {
		st.Logs = []processor.LogEntry{}
	}
	WriteJSON(w, http.StatusOK, st)
}
