package codec

import (
	"crypto"
	"fmt"

	"github.com/jeremyhahn/go-pki-tool/pkg/common"
	"github.com/youmark/pkcs8"
)

const (
	PEM_TYPE_CERTIFICATE           = "CERTIFICATE"
	PEM_TYPE_CERTIFICATE_REQUEST   = "CERTIFICATE REQUEST"
	PEM_TYPE_PRIVATE_KEY           = "PRIVATE KEY"
	PEM_TYPE_RSA_PRIVATE_KEY       = "RSA PRIVATE KEY"
	PEM_TYPE_ENCRYPTED_PRIVATE_KEY = "ENCRYPTED PRIVATE KEY"

	// PBKDF2 parameters used when encrypting PKCS #8 private keys
	PBKDF2_SALT_SIZE           = 16
	PBKDF2_ITERATION_COUNT     = 2048
	PBKDF2_MAX_ITERATION_COUNT = 10_000_000
)

var (
	ErrInvalidLabel               = fmt.Errorf("%w: codec: PEM label required", common.ErrInvalidParameter)
	ErrInvalidEncodingPEM         = fmt.Errorf("%w: codec: invalid PEM encoding", common.ErrMalformedInput)
	ErrUnexpectedPEMType          = fmt.Errorf("%w: codec: unexpected PEM block type", common.ErrMalformedInput)
	ErrInvalidCertificate         = fmt.Errorf("%w: codec: invalid x509 certificate", common.ErrMalformedInput)
	ErrInvalidCertificateRequest  = fmt.Errorf("%w: codec: invalid certificate signing request", common.ErrMalformedInput)
	ErrInvalidPrivateKey          = fmt.Errorf("%w: codec: invalid private key", common.ErrMalformedInput)
	ErrUnsupportedKeyAlgorithm    = fmt.Errorf("%w: codec: unsupported key algorithm, only RSA keys are supported", common.ErrMalformedInput)
	ErrEncryptedPEMNotSupported   = fmt.Errorf("%w: codec: legacy encrypted PEM private keys are not supported, convert to PKCS #8", common.ErrMalformedInput)
	ErrPrivateKeyPasswordRequired = fmt.Errorf("%w: codec: private key is encrypted and requires a password", common.ErrInvalidParameter)
	ErrIncorrectPassword          = fmt.Errorf("%w: codec: incorrect private key password", common.ErrAuthenticationFailed)
	ErrUnsupportedKeyEncryption   = fmt.Errorf("%w: codec: unsupported private key encryption", common.ErrMalformedInput)
	ErrNilKey                     = fmt.Errorf("%w: codec: key required", common.ErrInvalidParameter)
)

// Options used to encrypt PKCS #8 private keys
var encryptionOpts = &pkcs8.Opts{
	Cipher: pkcs8.AES256CBC,
	KDFOpts: pkcs8.PBKDF2Opts{
		SaltSize:       PBKDF2_SALT_SIZE,
		IterationCount: PBKDF2_ITERATION_COUNT,
		HMACHash:       crypto.SHA256,
	},
}
