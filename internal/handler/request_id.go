package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey int

const requestIDKey ctxKey = 0

// RequestIDHeader carries the request id to and from clients
const RequestIDHeader = "X-Request-Id"

// AddRequestID assigns every request an id, reusing a valid id sent by the client
func AddRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// GetReqID returns the request id of ctx, or an empty string
func GetReqID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
