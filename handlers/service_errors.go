package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/upb/ip-registry/services"
	"github.com/upb/ip-registry/utils"
	"go.uber.org/zap"
)

// statusForError maps a domain error type to its HTTP status
func statusForError(err error) int {
	switch services.GetErrorType(err) {
	case services.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorTypeForbidden:
		return http.StatusForbidden
	case services.ErrorTypeNotFound:
		return http.StatusNotFound
	case services.ErrorTypeConflict:
		return http.StatusConflict
	case services.ErrorTypeValidation:
		return http.StatusUnprocessableEntity
	case services.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case services.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	status := statusForError(err)
	message := services.GetErrorMessage(err)

	var errs interface{}
	switch {
	case status == http.StatusUnprocessableEntity:
		errs = fieldErrors(services.GetErrorDetails(err))
	case status >= http.StatusInternalServerError:
		logger.Error("service error",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		if status == http.StatusInternalServerError && message == "" {
			message = "An unexpected error occurred"
		}
	default:
		logger.Debug("handled service error",
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.String("error_code", string(services.GetErrorCode(err))),
			zap.String("message", message))
	}

	if err := utils.WriteFailure(w, status, message, errs); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}

// HandleValidationError writes a 422 for a request that failed decoding or validation
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	fields := utils.GetValidationFields(err)
	if fields == nil {
		fields = map[string][]string{"body": {"The request body must be valid JSON."}}
	}
	if err := utils.WriteUnprocessable(w, fields); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}

// decodeAndValidate decodes a JSON body into v and validates it.
// A missing body decodes as an empty object so required fields are reported.
func decodeAndValidate(r *http.Request, v interface{}) error {
	if err := utils.DecodeJSON(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return utils.ValidateStruct(v)
}

// fieldErrors converts error details to the {field: [messages]} form
func fieldErrors(details map[string]interface{}) map[string][]string {
	if len(details) == 0 {
		return nil
	}
	fields := make(map[string][]string, len(details))
	for field, detail := range details {
		switch v := detail.(type) {
		case string:
			fields[field] = []string{v}
		case []string:
			fields[field] = v
		}
	}
	return fields
}
