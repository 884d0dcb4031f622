package handlers

import (
	"context"
	"net/http"
	"time"

	"conductor/internal/apperr"
	"conductor/internal/models"
)

// RequestTimeout bounds the database work done for one request.
var RequestTimeout = 5 * time.Second

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), RequestTimeout)
}

func validBookID(bookID string) error {
	if _, _, ok := models.ParseBookID(bookID); !ok {
		return apperr.New(apperr.CodeBookIDMalformed, "")
	}
	return nil
}
