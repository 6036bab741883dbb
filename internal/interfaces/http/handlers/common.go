// Package handlers implements the HTTP handlers for the case compliance API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/medregula/casetrack/pkg/errors"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeAppError maps an application error onto its HTTP status and a
// structured body.  Internal errors are masked; domain rejections carry
// their message and detail through to the caller.
func writeAppError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatus(code)

	resp := ErrorResponse{Code: string(code)}
	var ae *errors.AppError
	if errors.AsAppError(err, &ae) && status < http.StatusInternalServerError {
		resp.Message = ae.Message
		resp.Detail = ae.Detail
	} else {
		resp.Message = http.StatusText(status)
	}
	writeJSON(w, status, resp)
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.InvalidParam("malformed request body: " + err.Error())
	}
	return nil
}
