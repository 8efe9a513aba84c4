package v1

import (
	"sort"
	"strings"

	"github.com/gorilla/mux"
	"github.com/jeremyhahn/go-pki-tool/pkg/history"
	"github.com/jeremyhahn/go-pki-tool/pkg/logging"
	"github.com/jeremyhahn/go-pki-tool/pkg/toolkit"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/middleware"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/response"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/rest"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/router"
)

const (
	BaseURI = "/api/v1"
)

type RouterParams struct {
	ExtractLimiter middleware.RateLimitMiddleware
	History        *history.Log
	JWTMiddleware  middleware.JsonWebTokenMiddleware
	Logger         *logging.Logger
	ResponseWriter response.HttpWriter
	Status         rest.StatusResponse
	Toolkit        *toolkit.Toolkit
}

type RouterV1 struct {
	params       *RouterParams
	endpointList []string
	router.WebServiceRouter
}

func NewRouterV1(params *RouterParams) router.WebServiceRouter {
	return &RouterV1{
		params:       params,
		endpointList: make([]string, 0)}
}

// Registers all REST services
func (v1Router *RouterV1) RegisterRoutes(muxRouter *mux.Router, baseURI string) []string {

	params := v1Router.params

	pkiRouter := router.NewPKIRouter(
		params.JWTMiddleware,
		params.ExtractLimiter,
		rest.NewPKIRestService(
			params.Logger,
			params.ResponseWriter,
			params.Toolkit,
			params.History))

	systemRouter := router.NewSystemRouter(
		rest.NewSystemRestService(
			params.Logger,
			params.ResponseWriter,
			params.Status))

	endpointList := make([]string, 0)
	endpointList = append(endpointList, systemRouter.RegisterRoutes(muxRouter, baseURI)...)
	endpointList = append(endpointList, pkiRouter.RegisterRoutes(muxRouter, baseURI)...)

	endpoints := sortAndDeDupe(endpointList)
	params.Logger.Debug(strings.Join(endpoints, "\n"))
	params.Logger.Debugf("Loaded %d REST endpoints", len(endpoints))
	v1Router.endpointList = endpoints

	return endpoints
}

func sortAndDeDupe(endpointList []string) []string {
	uniqueList := make(map[string]bool, len(endpointList))
	for _, endpoint := range endpointList {
		uniqueList[endpoint] = true
	}
	endpoints := make([]string, 0, len(uniqueList))
	for k := range uniqueList {
		endpoints = append(endpoints, k)
	}
	sort.Strings(endpoints)
	return endpoints
}
