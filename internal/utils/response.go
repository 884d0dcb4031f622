package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"conductor/internal/apperr"
)

// JSON writes payload merged into the success envelope {"err": false, ...}.
// Map payloads are flattened into the envelope; anything else is placed
// under "data".
func JSON(w http.ResponseWriter, status int, payload any) {
	body := map[string]any{"err": false}
	switch p := payload.(type) {
	case nil:
	case map[string]any:
		for k, v := range p {
			body[k] = v
		}
	default:
		body["data"] = p
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// JSONError writes the error envelope {"err": true, "errMsg": ..., "errCode": ...}.
func JSONError(w http.ResponseWriter, code apperr.Code, msg string) {
	if msg == "" {
		msg = code.Message()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]any{
		"err":     true,
		"errMsg":  msg,
		"errCode": code,
	})
}

// WriteError classifies err and writes the matching envelope. Internal
// errors are logged with their cause and answered with the generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	if appErr.Code.HTTPStatus() >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", appErr.Code,
			"error", err,
		)
		JSONError(w, appErr.Code, "")
		return
	}
	JSONError(w, appErr.Code, appErr.UserMessage())
}

// DecodeJSON reads a request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.CodeBadRequest, "Invalid JSON payload", err)
	}
	return nil
}

// Pagination is a validated page/limit pair.
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) Skip() int64 {
	return int64((p.Page - 1) * p.Limit)
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ParsePagination reads page and limit query parameters. Missing values take
// the defaults; non-numeric or out-of-range values are rejected.
func ParsePagination(r *http.Request) (Pagination, error) {
	p := Pagination{Page: 1, Limit: DefaultLimit}
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, apperr.New(apperr.CodeInvalidPage, "")
		}
		p.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			return p, apperr.New(apperr.CodeInvalidPage, "")
		}
		p.Limit = n
	}
	return p, nil
}
