package csr

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"fmt"

	"github.com/jeremyhahn/go-pki-tool/pkg/codec"
	"github.com/jeremyhahn/go-pki-tool/pkg/common"
)

var (
	ErrNilKey         = fmt.Errorf("%w: csr: private key required", common.ErrInvalidParameter)
	ErrSigningFailed  = fmt.Errorf("%w: csr: failed to sign certificate request", common.ErrMalformedInput)
	ErrInvalidRequest = fmt.Errorf("%w: csr: generated request failed verification", common.ErrMalformedInput)
)

// A signed PKCS #10 certificate signing request. The request is
// immutable once built.
type CertificationRequest struct {
	Raw                []byte
	Subject            Subject
	PublicKey          *rsa.PublicKey
	SignatureAlgorithm x509.SignatureAlgorithm
	Signature          []byte
}

// Builds and signs a PKCS #10 certificate signing request for the subject
// using SHA-256 with RSA PKCS #1 v1.5. Only non-empty subject fields are
// encoded. The private key is used for signing only and is not retained.
func Build(subject Subject, key *rsa.PrivateKey) (*CertificationRequest, error) {

	if err := subject.Validate(); err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrNilKey
	}

	subject = subject.Normalize()

	rawSubject, err := asn1.Marshal(subject.RDNSequence())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSubject, err)
	}

	template := x509.CertificateRequest{
		RawSubject:         rawSubject,
		SignatureAlgorithm: x509.SHA256WithRSA,
		PublicKeyAlgorithm: x509.RSA,
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, &template, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSigningFailed, err)
	}

	parsed, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}
	if err := parsed.CheckSignature(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	// Subject as decoded from the signed request
	return &CertificationRequest{
		Raw:                der,
		Subject:            SubjectFromName(parsed.Subject),
		PublicKey:          &key.PublicKey,
		SignatureAlgorithm: parsed.SignatureAlgorithm,
		Signature:          parsed.Signature,
	}, nil
}

// Returns the request in PEM form
func (cr *CertificationRequest) PEM() ([]byte, error) {
	return codec.EncodeCertificateRequest(cr.Raw)
}
