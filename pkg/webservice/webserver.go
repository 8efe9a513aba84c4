package webservice

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jeremyhahn/go-pki-tool/pkg/history"
	"github.com/jeremyhahn/go-pki-tool/pkg/logging"
	"github.com/jeremyhahn/go-pki-tool/pkg/toolkit"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/jwt"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/middleware"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/response"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/rest"

	v1 "github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1"
)

const (
	HTTP_SERVER_READ_TIMEOUT     = 5 * time.Second
	HTTP_SERVER_WRITE_TIMEOUT    = 30 * time.Second
	HTTP_SERVER_IDLE_TIMEOUT     = 120 * time.Second
	HTTP_SERVER_SHUTDOWN_TIMEOUT = 5 * time.Second
)

var (
	ErrToolkitRequired = errors.New("webserver: toolkit required")
)

type Params struct {
	Config  *Config
	History *history.Log
	Logger  *logging.Logger
	Name    string
	Toolkit *toolkit.Toolkit
	Version string
}

type WebServer struct {
	config       *Config
	endpointList []string
	httpServer   *http.Server
	logger       *logging.Logger
	router       *mux.Router
}

// Creates a new web server and registers the v1 REST endpoints.
// Operation endpoints require a bearer token when a JWT secret
// is configured.
func NewWebServer(params *Params) (*WebServer, error) {

	if params.Toolkit == nil {
		return nil, ErrToolkitRequired
	}
	if params.Logger == nil {
		params.Logger = logging.NewDiscardLogger()
	}
	config := params.Config
	if config == nil {
		config = &Config{}
	}

	responseWriter := response.NewResponseWriter(params.Logger)

	var jwtMiddleware middleware.JsonWebTokenMiddleware
	if config.JWTSecret != "" {
		jwtService, err := jwt.NewService(jwt.ServiceParams{
			Issuer: params.Name,
			Secret: []byte(config.JWTSecret),
		})
		if err != nil {
			return nil, err
		}
		jwtMiddleware = jwt.NewMiddleware(params.Logger, responseWriter, jwtService)
	} else {
		params.Logger.Warn("webserver: JWT secret not configured, REST endpoints are unauthenticated")
	}

	var extractLimiter middleware.RateLimitMiddleware
	if config.ExtractRateLimit > 0 {
		extractLimiter = middleware.NewRateLimiter(&middleware.RateLimiterParams{
			Logger:      params.Logger,
			Writer:      responseWriter,
			MaxRequests: config.ExtractRateLimit,
			Interval:    time.Minute,
		})
	}

	muxRouter := mux.NewRouter().StrictSlash(true)
	endpoints := v1.NewRouterV1(&v1.RouterParams{
		ExtractLimiter: extractLimiter,
		History:        params.History,
		JWTMiddleware:  jwtMiddleware,
		Logger:         params.Logger,
		ResponseWriter: responseWriter,
		Status: rest.StatusResponse{
			Name:           params.Name,
			Version:        params.Version,
			HistoryEnabled: params.History != nil,
			AuthEnabled:    jwtMiddleware != nil,
		},
		Toolkit: params.Toolkit,
	}).RegisterRoutes(muxRouter, v1.BaseURI)

	readTimeout := config.ReadTimeout
	if readTimeout == 0 {
		readTimeout = HTTP_SERVER_READ_TIMEOUT
	}
	writeTimeout := config.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = HTTP_SERVER_WRITE_TIMEOUT
	}

	return &WebServer{
		config:       config,
		endpointList: endpoints,
		logger:       params.Logger,
		router:       muxRouter,
		httpServer: &http.Server{
			Addr:         config.Listen,
			Handler:      muxRouter,
			IdleTimeout:  HTTP_SERVER_IDLE_TIMEOUT,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
	}, nil
}

// Returns the HTTP handler serving the REST endpoints
func (server *WebServer) Handler() http.Handler {
	return server.router
}

// Returns the registered REST endpoints
func (server *WebServer) Endpoints() []string {
	return server.endpointList
}

// Listens on the configured address and serves requests until
// the context is cancelled
func (server *WebServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", server.config.Listen)
	if err != nil {
		server.logger.Error(err)
		return err
	}
	return server.Serve(ctx, listener)
}

// Serves requests on the listener until the context is cancelled,
// then shuts down gracefully
func (server *WebServer) Serve(ctx context.Context, listener net.Listener) error {

	server.logger.Infof("webserver: starting web services on %s", listener.Addr())

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.httpServer.Serve(listener)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	server.logger.Info("webserver: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), HTTP_SERVER_SHUTDOWN_TIMEOUT)
	defer cancel()
	if err := server.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errChan; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
