package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// maxBodyBytes caps decoded request bodies
const maxBodyBytes = 1 << 20

// APIResponse is the envelope of every auth and app service response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// ErrorResponse is the gateway error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MessageResponse is the bare body of the internal audit intake
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a success envelope
func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) error {
	return WriteJSON(w, status, APIResponse{Success: true, Message: message, Data: data})
}

// WriteOK writes a 200 success envelope
func WriteOK(w http.ResponseWriter, message string, data interface{}) error {
	return WriteSuccess(w, http.StatusOK, message, data)
}

// WriteCreated writes a 201 success envelope
func WriteCreated(w http.ResponseWriter, message string, data interface{}) error {
	return WriteSuccess(w, http.StatusCreated, message, data)
}

// WritePage writes a 200 success envelope carrying pagination metadata
func WritePage(w http.ResponseWriter, message string, data, meta interface{}) error {
	return WriteJSON(w, http.StatusOK, APIResponse{Success: true, Message: message, Data: data, Meta: meta})
}

// WriteFailure writes an error envelope
func WriteFailure(w http.ResponseWriter, status int, message string, errs interface{}) error {
	return WriteJSON(w, status, APIResponse{Success: false, Message: message, Errors: errs})
}

// WriteUnprocessable writes a 422 envelope listing field errors
func WriteUnprocessable(w http.ResponseWriter, fields map[string][]string) error {
	return WriteFailure(w, http.StatusUnprocessableEntity, "Validation failed", fields)
}

// WriteGatewayError writes the gateway's {error, message} body
func WriteGatewayError(w http.ResponseWriter, status int, errorText, message string) error {
	return WriteJSON(w, status, ErrorResponse{Error: errorText, Message: message})
}

// WriteUnauthorized writes a 401 gateway error
func WriteUnauthorized(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "Authentication required"
	}
	return WriteGatewayError(w, http.StatusUnauthorized, "Unauthorized", message)
}

// WriteServiceUnavailable writes a 503 gateway error
func WriteServiceUnavailable(w http.ResponseWriter, message string) error {
	return WriteGatewayError(w, http.StatusServiceUnavailable, "Service unavailable", message)
}

// WriteNotFound writes a 404 gateway error
func WriteNotFound(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "Resource not found"
	}
	return WriteGatewayError(w, http.StatusNotFound, "Not found", message)
}

// WriteMessage writes a bare {message} body
func WriteMessage(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, MessageResponse{Message: message})
}

// DecodeJSON decodes the request body into v.
// An empty body is reported as io.EOF so callers can treat it as missing fields.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return io.EOF
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// ClientIP returns the first X-Forwarded-For hop, else the remote address host
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
