package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"farmart/internal/domain"

	"go.uber.org/zap"
)

// ErrorResponse is the flat error body returned by every endpoint
type ErrorResponse struct {
	Error   string            `json:"error"`
	Kind    domain.ErrorKind  `json:"kind,omitempty"`
	Details []ValidationError `json:"details,omitempty"`
}

const internalErrorMessage = "internal server error"

var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation: http.StatusBadRequest,
	domain.KindAuth:       http.StatusUnauthorized,
	domain.KindForbidden:  http.StatusForbidden,
	domain.KindNotFound:   http.StatusNotFound,
	domain.KindConflict:   http.StatusConflict,
	domain.KindInternal:   http.StatusInternalServerError,
}

// StatusForKind maps an error kind to its HTTP status
func StatusForKind(kind domain.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func kindForStatus(status int) domain.ErrorKind {
	for kind, s := range kindStatus {
		if s == status {
			return kind
		}
	}
	return ""
}

// RespondWithError sends an error body for a status without a domain error at hand
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	writeError(w, statusCode, ErrorResponse{Error: message, Kind: kindForStatus(statusCode)})
}

// RespondWithValidationErrors sends a 400 carrying the failed fields
func RespondWithValidationErrors(w http.ResponseWriter, errs []ValidationError) {
	writeError(w, http.StatusBadRequest, ErrorResponse{
		Error:   "validation failed",
		Kind:    domain.KindValidation,
		Details: errs,
	})
}

// RespondWithDomainError maps err to its status and message.
// Errors outside the domain taxonomy are logged and answered with a generic 500.
func RespondWithDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.Error("Unhandled error", zap.Error(err))
		RespondWithError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	if de.Kind == domain.KindInternal {
		logger.Error("Internal error", zap.Error(err))
	}
	writeError(w, StatusForKind(de.Kind), ErrorResponse{Error: de.Message, Kind: de.Kind})
}

func writeError(w http.ResponseWriter, statusCode int, body ErrorResponse) {
	RespondWithJSON(w, statusCode, body)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("Panic recovered",
						zap.Any("error", rec),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, internalErrorMessage)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
