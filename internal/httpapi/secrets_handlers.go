package httpapi

import (
	"net/http"

	"workorder-engine/internal/config"
	"workorder-engine/internal/secrets"
)

type SecretsHandler struct {
	Config *config.Store
}

type setIMAPPasswordReq struct {
	Password string `json:"password"`
}

// SetIMAPPassword stores the mailbox password in the OS keychain under the
// account named by the current imap section.
func (h SecretsHandler) SetIMAPPassword(w http.ResponseWriter, r *http.Request) {
	var req setIMAPPasswordReq
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cfg, err := h.Config.Load()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "config_error", err.Error())
		return
	}
	if err := secrets.SetIMAPPassword(secrets.IMAPKeyringAccount(cfg.IMAP), req.Password); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_error", "failed to store password: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
