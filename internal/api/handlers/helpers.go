package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	apiContext "pushhook/internal/api/context"
	"pushhook/internal/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func pathParam(r *http.Request, name string) string {
	params, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	return params.ByName(name)
}

// writeServiceError maps the domain sentinels onto HTTP statuses. Anything else is a 500 and
// only its log line carries the cause.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error, msg string) {
	var verr *errors.ValidationError
	switch {
	case stderrors.As(err, &verr):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, verr.Reason, nil)
	case stderrors.Is(err, errors.ErrNotFound):
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Not found", nil)
	case stderrors.Is(err, errors.ErrUnauthorized):
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Não autorizado", nil)
	default:
		logger.Error().Err(err).Msg(msg)
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, msg, nil)
	}
}
