package router

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/rest"
)

type SystemRouter struct {
	systemRestService rest.SystemRestServicer
	WebServiceRouter
}

// Creates a new web service system router
func NewSystemRouter(systemRestService rest.SystemRestServicer) WebServiceRouter {
	return &SystemRouter{systemRestService: systemRestService}
}

// Registers the system endpoints
func (systemRouter *SystemRouter) RegisterRoutes(router *mux.Router, baseURI string) []string {
	return []string{
		systemRouter.status(router, baseURI),
	}
}

// @Summary System Status
// @Description Returns the service version and uptime
// @Tags System
// @Produce  json
// @Success 200 {object} rest.StatusResponse
// @Router /status [get]
func (systemRouter *SystemRouter) status(router *mux.Router, baseURI string) string {
	endpoint := fmt.Sprintf("%s/status", baseURI)
	router.HandleFunc(endpoint, systemRouter.systemRestService.Status).Methods(http.MethodGet)
	return endpoint
}
