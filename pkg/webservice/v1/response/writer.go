package response

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/jeremyhahn/go-pki-tool/pkg/common"
	"github.com/jeremyhahn/go-pki-tool/pkg/logging"
	"github.com/jeremyhahn/go-pki-tool/pkg/serializer"
)

type HttpWriter interface {
	Write(w http.ResponseWriter, r *http.Request, status int, response interface{})
	Success200(w http.ResponseWriter, r *http.Request, payload interface{})
	Error(w http.ResponseWriter, r *http.Request, err error)
	Error400(w http.ResponseWriter, r *http.Request, err error)
	Error401(w http.ResponseWriter, r *http.Request, err error)
	Error404(w http.ResponseWriter, r *http.Request, err error)
	Error500(w http.ResponseWriter, r *http.Request, err error)
}

type WebServiceResponse struct {
	Code    int         `yaml:"code" json:"code"`
	Error   string      `yaml:"error" json:"error"`
	Success bool        `yaml:"success" json:"success"`
	Payload interface{} `yaml:"payload" json:"payload"`
}

type ResponseWriter struct {
	logger *logging.Logger
}

func NewResponseWriter(logger *logging.Logger) HttpWriter {
	return &ResponseWriter{logger: logger}
}

// Returns the serializer requested by the client accept header.
// Defaults to JSON when a YAML media type is not requested.
func negotiate(r *http.Request) (serializer.SerializerType, string) {
	accept := strings.ToLower(r.Header.Get("accept"))
	if strings.Contains(accept, "yaml") {
		return serializer.SERIALIZER_YAML, "application/yaml"
	}
	return serializer.SERIALIZER_JSON, "application/json"
}

// Writes a response to the http client using the client accept header to
// determine whether to use a JSON or YAML serializer and content-type header
func (writer *ResponseWriter) Write(w http.ResponseWriter, r *http.Request, status int, response interface{}) {
	serializerType, contentType := negotiate(r)
	s, err := serializer.NewSerializer[interface{}](serializerType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	body, err := s.Serialize(response)
	if err != nil {
		writer.logger.Error(err)
		errResponse := WebServiceResponse{
			Code:  http.StatusInternalServerError,
			Error: fmt.Sprintf("failed to marshal response entity %s", reflect.TypeOf(response))}
		errBytes, _ := s.Serialize(errResponse)
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(errBytes)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(body)

	writer.logger.Debugf("status: %d, content-type: %s, bytes: %d", status, contentType, len(body))
}

func (writer *ResponseWriter) Success200(w http.ResponseWriter, r *http.Request, payload interface{}) {
	writer.logRequest(r)
	writer.Write(w, r, http.StatusOK, WebServiceResponse{
		Code:    http.StatusOK,
		Success: true,
		Payload: payload})
}

// Writes an error response with the status code that
// corresponds to the kind of error
func (writer *ResponseWriter) Error(w http.ResponseWriter, r *http.Request, err error) {
	writer.writeError(w, r, StatusCode(err), err)
}

func (writer *ResponseWriter) Error400(w http.ResponseWriter, r *http.Request, err error) {
	writer.writeError(w, r, http.StatusBadRequest, err)
}

func (writer *ResponseWriter) Error401(w http.ResponseWriter, r *http.Request, err error) {
	writer.writeError(w, r, http.StatusUnauthorized, err)
}

func (writer *ResponseWriter) Error404(w http.ResponseWriter, r *http.Request, err error) {
	writer.writeError(w, r, http.StatusNotFound, err)
}

func (writer *ResponseWriter) Error500(w http.ResponseWriter, r *http.Request, err error) {
	writer.writeError(w, r, http.StatusInternalServerError, err)
}

func (writer *ResponseWriter) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writer.logError(r, err)
	writer.Write(w, r, status, WebServiceResponse{
		Code:    status,
		Error:   err.Error(),
		Success: false,
		Payload: nil})
}

// Maps an error to an HTTP status code
func StatusCode(err error) int {
	switch {
	case errors.Is(err, common.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrInvalidParameter),
		errors.Is(err, common.ErrMalformedInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (writer *ResponseWriter) logRequest(r *http.Request) {
	writer.logger.Debugf("url: %s, method: %s, remoteAddress: %s, requestUri: %s",
		r.URL.Path, r.Method, r.RemoteAddr, r.RequestURI)
}

func (writer *ResponseWriter) logError(r *http.Request, err error) {
	writer.logger.Debugf("url: %s, method: %s, remoteAddress: %s, requestUri: %s, error: %s",
		r.URL.Path, r.Method, r.RemoteAddr, r.RequestURI, err)
}
