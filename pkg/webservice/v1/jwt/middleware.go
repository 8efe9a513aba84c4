package jwt

import (
	"net/http"

	"github.com/jeremyhahn/go-pki-tool/pkg/logging"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/middleware"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/response"
)

type Middleware struct {
	logger         *logging.Logger
	responseWriter response.HttpWriter
	service        *Service
}

func NewMiddleware(
	logger *logging.Logger,
	responseWriter response.HttpWriter,
	service *Service) middleware.JsonWebTokenMiddleware {

	return &Middleware{
		logger:         logger,
		responseWriter: responseWriter,
		service:        service}
}

// Verifies the request bearer token before passing the request
// to the next handler. Rejected requests are logged as security
// events.
func (mw *Middleware) Verify(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {

	mw.logger.Debugf("url: %s, method: %s, remoteAddress: %s, requestUri: %s",
		r.URL.Path, r.Method, r.RemoteAddr, r.RequestURI)

	_, claims, err := mw.service.ParseToken(r)
	if err != nil {
		mw.logger.Security(logging.SecurityLogEntry{
			Severity:        logging.SeverityMedium,
			Category:        logging.CategoryAuthorization,
			Description:     "rejected web service request",
			Details:         err.Error(),
			Source:          logging.SourceWebService,
			OffenderAddress: r.RemoteAddr,
		})
		mw.responseWriter.Error401(w, r, err)
		return
	}

	mw.logger.Debugf("jwt/middleware: subject: %s", claims.Subject)

	next(w, r)
}
