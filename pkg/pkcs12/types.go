package pkcs12

import (
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-pki-tool/pkg/common"
)

const (
	PFX_VERSION        = 3
	DEFAULT_ITERATIONS = 2048
	MIN_ITERATIONS     = 1000
	MAX_ITERATIONS     = 10_000_000
	SALT_SIZE          = 16
)

var (
	ErrInvalidPFX           = fmt.Errorf("%w: pkcs12: invalid PFX structure", common.ErrMalformedInput)
	ErrUnsupportedAlgorithm = fmt.Errorf("%w: pkcs12: unsupported algorithm", common.ErrMalformedInput)
	ErrIncorrectPassword    = fmt.Errorf("%w: pkcs12: incorrect password or integrity check failed", common.ErrAuthenticationFailed)
	ErrPasswordRequired     = fmt.Errorf("%w: pkcs12: password required", common.ErrInvalidParameter)
	ErrInvalidPassword      = fmt.Errorf("%w: pkcs12: password contains characters outside the basic multilingual plane", common.ErrInvalidParameter)
	ErrCertificateRequired  = fmt.Errorf("%w: pkcs12: certificate required", common.ErrInvalidParameter)
	ErrPrivateKeyRequired   = fmt.Errorf("%w: pkcs12: private key required", common.ErrInvalidParameter)
	ErrInvalidIterations    = fmt.Errorf("%w: pkcs12: iteration count out of range", common.ErrInvalidParameter)
)

// PFX, RFC 7292 section 4
type PFX struct {
	Version  int
	AuthSafe ContentInfo
	MacData  *MacData
	// DER encoded AuthenticatedSafe, the input to the MAC
	RawAuthSafe []byte
}

// PKCS #7 ContentInfo. Content holds the value inside the
// explicit [0] tag.
type ContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     []byte
}

type MacData struct {
	Algorithm  pkix.AlgorithmIdentifier
	Digest     []byte
	Salt       []byte
	Iterations int
}

type SafeBag struct {
	ID         asn1.ObjectIdentifier
	Value      []byte
	Attributes []Attribute
}

type Attribute struct {
	ID     asn1.ObjectIdentifier
	Values [][]byte
}

// Parsed password based encryption parameters
type encryptionParams struct {
	algorithm  asn1.ObjectIdentifier
	salt       []byte
	iterations int
	prf        asn1.ObjectIdentifier
	cipher     asn1.ObjectIdentifier
	iv         []byte
}

// Options used when packing a certificate and key
type EncodeOptions struct {
	// PBKDF2 and MAC iteration count, defaults to 2048
	Iterations int
	// Optional friendly name attached to both bags
	FriendlyName string
	// Source of salts and IVs, defaults to crypto/rand
	Random io.Reader
}

// The certificate and key recovered from a PKCS #12 archive. When an
// archive holds more than one bag of a type, the first one encountered
// is returned and the count reports how many were found.
type Contents struct {
	Certificate      *x509.Certificate
	PrivateKey       *rsa.PrivateKey
	FriendlyName     string
	CertificateCount int
	KeyCount         int
	// friendly name of the first key bag
	keyName string
}
