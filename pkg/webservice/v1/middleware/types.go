package middleware

import "net/http"

type JsonWebTokenMiddleware interface {
	Verify(w http.ResponseWriter, r *http.Request, next http.HandlerFunc)
}

type RateLimitMiddleware interface {
	Limit(w http.ResponseWriter, r *http.Request, next http.HandlerFunc)
}
