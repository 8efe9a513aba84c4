package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jeremyhahn/go-pki-tool/pkg/history"
	"github.com/jeremyhahn/go-pki-tool/pkg/logging"
	"github.com/jeremyhahn/go-pki-tool/pkg/secret"
	"github.com/jeremyhahn/go-pki-tool/pkg/toolkit"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/response"
)

type PKIRestServicer interface {
	CSR(w http.ResponseWriter, r *http.Request)
	PKCS12(w http.ResponseWriter, r *http.Request)
	Extract(w http.ResponseWriter, r *http.Request)
	Match(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
}

type PKIRestService struct {
	history    *history.Log
	httpWriter response.HttpWriter
	logger     *logging.Logger
	toolkit    *toolkit.Toolkit
}

func NewPKIRestService(
	logger *logging.Logger,
	httpWriter response.HttpWriter,
	tk *toolkit.Toolkit,
	historyLog *history.Log) PKIRestServicer {

	return &PKIRestService{
		history:    historyLog,
		httpWriter: httpWriter,
		logger:     logger,
		toolkit:    tk}
}

// Generates a new RSA key and certificate signing request
func (restService *PKIRestService) CSR(w http.ResponseWriter, r *http.Request) {
	var request toolkit.CSRRequest
	if err := restService.decode(w, r, &request); err != nil {
		restService.httpWriter.Error400(w, r, err)
		return
	}
	result, err := restService.toolkit.GenerateKeyAndCSR(r.Context(), request)
	restService.record(history.OperationCSR, request.Subject.CommonName,
		fmt.Sprintf("key-size=%d", request.KeySize), err)
	if err != nil {
		restService.httpWriter.Error(w, r, err)
		return
	}
	restService.httpWriter.Success200(w, r, result)
}

// Packages a certificate and private key into a PKCS #12 archive
func (restService *PKIRestService) PKCS12(w http.ResponseWriter, r *http.Request) {
	var request PKCS12Request
	if err := restService.decode(w, r, &request); err != nil {
		restService.httpWriter.Error400(w, r, err)
		return
	}
	archive, err := restService.toolkit.CreatePKCS12(
		request.Certificate,
		request.PrivateKey,
		secret.NewClearPasswordFromString(request.Password))
	restService.record(history.OperationPKCS12, "", "", err)
	if err != nil {
		restService.httpWriter.Error(w, r, err)
		return
	}
	restService.httpWriter.Success200(w, r, PKCS12Response{PKCS12: archive})
}

// Extracts the certificate and private key from a PKCS #12 archive
func (restService *PKIRestService) Extract(w http.ResponseWriter, r *http.Request) {
	var request ExtractRequest
	if err := restService.decode(w, r, &request); err != nil {
		restService.httpWriter.Error400(w, r, err)
		return
	}
	extracted, err := restService.toolkit.ExtractFromPKCS12(
		request.PKCS12,
		secret.NewClearPasswordFromString(request.Password))
	detail := ""
	if extracted != nil {
		detail = fmt.Sprintf("certificates=%d keys=%d",
			extracted.CertificateCount, extracted.KeyCount)
	}
	restService.record(history.OperationExtract, "", detail, err)
	if err != nil {
		restService.httpWriter.Error(w, r, err)
		return
	}
	restService.httpWriter.Success200(w, r, extracted)
}

// Reports whether a certificate and private key share the same modulus
func (restService *PKIRestService) Match(w http.ResponseWriter, r *http.Request) {
	var request MatchRequest
	if err := restService.decode(w, r, &request); err != nil {
		restService.httpWriter.Error400(w, r, err)
		return
	}
	matches, err := restService.toolkit.VerifyMatch(request.Certificate, request.PrivateKey)
	restService.record(history.OperationMatch, "", fmt.Sprintf("matches=%t", matches), err)
	if err != nil {
		restService.httpWriter.Error(w, r, err)
		return
	}
	restService.httpWriter.Success200(w, r, MatchResponse{Matches: matches})
}

// Returns the operation history
func (restService *PKIRestService) History(w http.ResponseWriter, r *http.Request) {
	if restService.history == nil {
		restService.httpWriter.Error404(w, r, ErrHistoryDisabled)
		return
	}
	entries, err := restService.history.List()
	if err != nil {
		restService.httpWriter.Error500(w, r, err)
		return
	}
	restService.httpWriter.Success200(w, r, entries)
}

func (restService *PKIRestService) decode(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestSize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequestBody, err)
	}
	return nil
}

func (restService *PKIRestService) record(op history.Operation, subject, detail string, err error) {
	if restService.history == nil {
		return
	}
	if _, herr := restService.history.Append(op, subject, detail, err == nil); herr != nil {
		restService.logger.Error(herr)
	}
}
