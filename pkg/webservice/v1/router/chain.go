package router

import (
	"net/http"

	"github.com/codegangsta/negroni"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/middleware"
)

// Builds the negroni chain for an endpoint. The rate limiter runs
// ahead of JWT verification so failed authentication attempts also
// consume tokens. Either middleware may be nil.
func protect(
	jwtMiddleware middleware.JsonWebTokenMiddleware,
	rateLimiter middleware.RateLimitMiddleware,
	handler http.HandlerFunc) http.Handler {

	n := negroni.New()
	if rateLimiter != nil {
		n.Use(negroni.HandlerFunc(rateLimiter.Limit))
	}
	if jwtMiddleware != nil {
		n.Use(negroni.HandlerFunc(jwtMiddleware.Verify))
	}
	n.UseHandler(handler)
	return n
}
