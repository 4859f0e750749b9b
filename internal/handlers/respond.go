// Package handlers exposes the HTTP surface of the tracking core and maps
// the error taxonomy to status codes. Role gating happens in middleware;
// the only authorization done here is the driver-ownership check ahead of
// the location pipeline.
package handlers

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/univfleet/vehicle-tracking/internal/errs"
)

type errorBody struct {
	Kind          string            `json:"kind"`
	Message       string            `json:"message"`
	Fields        map[string]string `json:"fields,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// writeError maps the taxonomy: validation 400, not-found 404, conflict
// 409, everything else an opaque 500. The internal cause is logged with its
// correlation id and never leaked.
func writeError(w http.ResponseWriter, err error) {
	if ve, ok := errs.AsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{errorBody{
			Kind:    errs.KindValidation,
			Message: "validation failed",
			Fields:  ve.Fields,
		}})
		return
	}
	if nf, ok := errs.AsNotFound(err); ok {
		writeJSON(w, http.StatusNotFound, errorEnvelope{errorBody{
			Kind:    errs.KindNotFound,
			Message: nf.Error(),
		}})
		return
	}
	if ce, ok := errs.AsConflict(err); ok {
		writeJSON(w, http.StatusConflict, errorEnvelope{errorBody{
			Kind:    errs.KindConflict,
			Message: ce.Error(),
		}})
		return
	}

	internal, ok := errs.AsInternal(err)
	if !ok {
		internal = errs.NewInternal(err)
	}
	log.WithFields(log.Fields{
		"correlation_id": internal.CorrelationID,
	}).WithError(internal.Unwrap()).Error("Request failed")
	writeJSON(w, http.StatusInternalServerError, errorEnvelope{errorBody{
		Kind:          errs.KindInternal,
		Message:       "internal error",
		CorrelationID: internal.CorrelationID,
	}})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, errs.NewValidation("body", "invalid JSON"))
		return false
	}
	return true
}
