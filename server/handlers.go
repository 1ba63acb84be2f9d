package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/youssefsiam38/pgexec"
)

// APIError is the error payload.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error *APIError `json:"error"`
}

// executeRequest is the body of POST /v1/execute. Options not present in
// the body keep the configured defaults.
type executeRequest struct {
	Input   pgexec.Input   `json:"input"`
	Options pgexec.Options `json:"options"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: &APIError{Code: code, Message: message}})
}

func (rt *router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *router) handleExecute(w http.ResponseWriter, r *http.Request) {
	req := executeRequest{Options: rt.config.Defaults}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, rt.config.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body: "+err.Error())
		return
	}

	res, err := rt.exec.Execute(r.Context(), req.Input, req.Options)
	if err != nil {
		status, code := statusOf(err)
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// statusOf maps an Execute failure onto an HTTP status and error code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, pgexec.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, pgexec.ErrConnection):
		return http.StatusBadGateway, "connection_error"
	case errors.Is(err, pgexec.ErrCancelled):
		return http.StatusRequestTimeout, "cancelled"
	case errors.Is(err, pgexec.ErrRollback):
		return http.StatusInternalServerError, "rollback_failed"
	default:
		return http.StatusInternalServerError, "execution_error"
	}
}
