package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in the response envelope. Clients branch on the code;
// the message is for humans.
const (
	codeInvalidBody  = "invalid_body"
	codeUnauthorized = "unauthorized"
	codeForbidden    = "forbidden"
	codeNotFound     = "not_found"
	codeValidation   = "validation_error"
	codeConstraint   = "constraint_error"
	codeRateLimited  = "rate_limited"
	codeInternal     = "internal_error"
)

// maxBodyBytes caps request bodies. Planora payloads are small JSON
// documents; anything approaching the cap is malformed or hostile.
const maxBodyBytes = 1 << 20

type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorDetail{Code: code, Message: message}})
}

// readJSON decodes the request body into v. The body is capped at
// maxBodyBytes; an oversized body surfaces as a decode error rather than a
// dropped connection.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return err
	}
	return nil
}
