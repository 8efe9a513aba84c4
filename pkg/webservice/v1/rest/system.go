package rest

import (
	"net/http"
	"time"

	"github.com/jeremyhahn/go-pki-tool/pkg/logging"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/response"
)

type SystemRestServicer interface {
	Status(w http.ResponseWriter, r *http.Request)
}

type SystemRestService struct {
	httpWriter response.HttpWriter
	logger     *logging.Logger
	started    time.Time
	status     StatusResponse
}

func NewSystemRestService(
	logger *logging.Logger,
	httpWriter response.HttpWriter,
	status StatusResponse) SystemRestServicer {

	return &SystemRestService{
		httpWriter: httpWriter,
		logger:     logger,
		started:    time.Now(),
		status:     status}
}

// Writes the service status with the current uptime
func (restService *SystemRestService) Status(w http.ResponseWriter, r *http.Request) {
	status := restService.status
	status.Uptime = time.Since(restService.started).Round(time.Second).String()
	restService.httpWriter.Success200(w, r, status)
}
