package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"licensedesk/internal/apperr"
)

func respondJSON(w http.ResponseWriter, v interface{}) {
	respondStatus(w, http.StatusOK, v)
}

func respondStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// respondError maps err onto its HTTP status. Infrastructure failures are
// logged with their cause and answered with a generic message only.
func respondError(w http.ResponseWriter, lg *zap.SugaredLogger, err error) {
	code := apperr.CodeOf(err)
	meta := apperr.MetadataFor(code)
	msg := meta.PublicMessage
	if typed := apperr.As(err); typed != nil && meta.DetailsAllowed && typed.Message() != "" {
		msg = typed.Message()
	}
	if !meta.DetailsAllowed {
		lg.Errorw("request failed", "code", code, "error", err)
	}
	respondStatus(w, meta.HTTPStatus, map[string]any{
		"success": false,
		"code":    code,
		"message": msg,
	})
}
