package router

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/middleware"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/rest"
)

type PKIRouter struct {
	jwtMiddleware  middleware.JsonWebTokenMiddleware
	extractLimiter middleware.RateLimitMiddleware
	pkiRestService rest.PKIRestServicer
	WebServiceRouter
}

// Creates a new router for the certificate and key endpoints
func NewPKIRouter(
	jwtMiddleware middleware.JsonWebTokenMiddleware,
	extractLimiter middleware.RateLimitMiddleware,
	pkiRestService rest.PKIRestServicer) WebServiceRouter {

	return &PKIRouter{
		jwtMiddleware:  jwtMiddleware,
		extractLimiter: extractLimiter,
		pkiRestService: pkiRestService}
}

// Registers the certificate and key endpoints
func (pkiRouter *PKIRouter) RegisterRoutes(router *mux.Router, baseURI string) []string {
	return []string{
		pkiRouter.csr(router, baseURI),
		pkiRouter.pkcs12(router, baseURI),
		pkiRouter.extract(router, baseURI),
		pkiRouter.match(router, baseURI),
		pkiRouter.history(router, baseURI),
	}
}

// @Summary Generate key and CSR
// @Description Generates a new RSA key and PKCS #10 certificate signing request
// @Tags PKI
// @Accept json
// @Produce json
// @Success 200 {object} toolkit.CSRResult
// @Failure 400 {object} response.WebServiceResponse
// @Router /csr [post]
// @Security JWT
func (pkiRouter *PKIRouter) csr(router *mux.Router, baseURI string) string {
	endpoint := fmt.Sprintf("%s/csr", baseURI)
	router.Handle(endpoint, protect(pkiRouter.jwtMiddleware, nil, pkiRouter.pkiRestService.CSR)).Methods(http.MethodPost)
	return endpoint
}

// @Summary Create PKCS #12
// @Description Packages a certificate and private key into a password protected PKCS #12 archive
// @Tags PKI
// @Accept json
// @Produce json
// @Success 200 {object} rest.PKCS12Response
// @Failure 400 {object} response.WebServiceResponse
// @Router /pkcs12 [post]
// @Security JWT
func (pkiRouter *PKIRouter) pkcs12(router *mux.Router, baseURI string) string {
	endpoint := fmt.Sprintf("%s/pkcs12", baseURI)
	router.Handle(endpoint, protect(pkiRouter.jwtMiddleware, nil, pkiRouter.pkiRestService.PKCS12)).Methods(http.MethodPost)
	return endpoint
}

// @Summary Extract PKCS #12
// @Description Returns the PEM encoded certificate and private key stored in a PKCS #12 archive
// @Tags PKI
// @Accept json
// @Produce json
// @Success 200 {object} toolkit.Extracted
// @Failure 400 {object} response.WebServiceResponse
// @Failure 401 {object} response.WebServiceResponse
// @Failure 429 {object} response.WebServiceResponse
// @Router /pkcs12/extract [post]
// @Security JWT
func (pkiRouter *PKIRouter) extract(router *mux.Router, baseURI string) string {
	endpoint := fmt.Sprintf("%s/pkcs12/extract", baseURI)
	router.Handle(endpoint, protect(pkiRouter.jwtMiddleware, pkiRouter.extractLimiter, pkiRouter.pkiRestService.Extract)).Methods(http.MethodPost)
	return endpoint
}

// @Summary Match certificate and key
// @Description Reports whether a certificate and private key share the same RSA modulus
// @Tags PKI
// @Accept json
// @Produce json
// @Success 200 {object} rest.MatchResponse
// @Failure 400 {object} response.WebServiceResponse
// @Router /match [post]
// @Security JWT
func (pkiRouter *PKIRouter) match(router *mux.Router, baseURI string) string {
	endpoint := fmt.Sprintf("%s/match", baseURI)
	router.Handle(endpoint, protect(pkiRouter.jwtMiddleware, nil, pkiRouter.pkiRestService.Match)).Methods(http.MethodPost)
	return endpoint
}

// @Summary Operation history
// @Description Returns the operation history log
// @Tags PKI
// @Produce json
// @Success 200 {array} history.Entry
// @Failure 404 {object} response.WebServiceResponse
// @Router /history [get]
// @Security JWT
func (pkiRouter *PKIRouter) history(router *mux.Router, baseURI string) string {
	endpoint := fmt.Sprintf("%s/history", baseURI)
	router.Handle(endpoint, protect(pkiRouter.jwtMiddleware, nil, pkiRouter.pkiRestService.History)).Methods(http.MethodGet)
	return endpoint
}
