package toolkit

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-pki-tool/pkg/codec"
	"github.com/jeremyhahn/go-pki-tool/pkg/common"
	"github.com/jeremyhahn/go-pki-tool/pkg/csr"
	"github.com/jeremyhahn/go-pki-tool/pkg/keygen"
	"github.com/jeremyhahn/go-pki-tool/pkg/logging"
	"github.com/jeremyhahn/go-pki-tool/pkg/matcher"
	"github.com/jeremyhahn/go-pki-tool/pkg/pkcs12"
	"github.com/jeremyhahn/go-pki-tool/pkg/secret"
)

// Toolkit exposes the certificate and key operations consumed by
// the CLI and web service. It holds no mutable state and is safe
// for concurrent use.
type Toolkit struct {
	params    *Params
	logger    *logging.Logger
	generator *keygen.Generator
}

func NewToolkit(params *Params) (*Toolkit, error) {
	if params == nil {
		params = &Params{}
	}
	if params.Logger == nil {
		params.Logger = logging.NewDiscardLogger()
	}
	if params.Random == nil {
		params.Random = rand.Reader
	}
	if params.DefaultKeySize == 0 {
		params.DefaultKeySize = keygen.DefaultKeySize
	}
	if params.Iterations == 0 {
		params.Iterations = pkcs12.DEFAULT_ITERATIONS
	}
	if err := keygen.ValidateKeySize(params.DefaultKeySize); err != nil {
		return nil, err
	}
	if params.Iterations < pkcs12.MIN_ITERATIONS || params.Iterations > pkcs12.MAX_ITERATIONS {
		return nil, pkcs12.ErrInvalidIterations
	}
	return &Toolkit{
		params: params,
		logger: params.Logger,
		generator: keygen.NewGenerator(&keygen.Params{
			Logger: params.Logger,
			Random: params.Random,
		}),
	}, nil
}

// Generates a new RSA private key. A bit size of 0 selects the
// configured default key size.
func (tk *Toolkit) GenerateKey(ctx context.Context, bits int) (*rsa.PrivateKey, error) {
	if bits == 0 {
		bits = tk.params.DefaultKeySize
	}
	return tk.generator.Generate(ctx, bits)
}

// Generates a new RSA key and a PKCS #10 certificate signing request
// for the requested subject. Keys smaller than 2048 bits are allowed
// but flagged as insecure in the result.
func (tk *Toolkit) GenerateKeyAndCSR(ctx context.Context, request CSRRequest) (*CSRResult, error) {

	subject := request.Subject.Normalize()
	if err := subject.Validate(); err != nil {
		tk.logger.Warnf("toolkit: rejected CSR request: %s", err)
		return nil, err
	}

	bits := request.KeySize
	if bits == 0 {
		bits = tk.params.DefaultKeySize
	}
	if err := keygen.ValidateKeySize(bits); err != nil {
		return nil, err
	}

	key, err := tk.GenerateKey(ctx, bits)
	if err != nil {
		return nil, err
	}

	cr, err := csr.Build(subject, key)
	if err != nil {
		tk.logger.Error(err)
		return nil, err
	}

	csrPEM, err := cr.PEM()
	if err != nil {
		return nil, err
	}
	keyPEM, err := codec.EncodePrivateKey(key)
	if err != nil {
		return nil, err
	}

	result := &CSRResult{
		CSR:        csrPEM,
		PrivateKey: keyPEM,
		Subject:    cr.Subject,
		KeySize:    bits,
	}
	if keygen.IsWeak(bits) {
		result.Insecure = true
		result.Warning = fmt.Sprintf("%d-bit key: %s", bits, keygen.WeakKeySizeNotice)
		tk.logger.Warn(result.Warning, "cn", subject.CommonName)
	}

	tk.logger.Infof("toolkit: generated %d-bit key and CSR for %s", bits, subject.CommonName)

	return result, nil
}

// Packages a certificate and private key into a password protected
// PKCS #12 archive. The pair is not required to match. The password
// is cleared before returning.
func (tk *Toolkit) CreatePKCS12(certData, keyData []byte, password secret.Password) ([]byte, error) {

	if password == nil {
		return nil, pkcs12.ErrPasswordRequired
	}
	defer password.Clear()

	if password.Empty() {
		return nil, pkcs12.ErrPasswordRequired
	}

	cert, err := codec.ParseCertificate(certData)
	if err != nil {
		return nil, err
	}
	key, err := codec.ParsePrivateKey(keyData, nil)
	if err != nil {
		return nil, err
	}

	pass, err := password.Bytes()
	if err != nil {
		return nil, err
	}

	archive, err := pkcs12.Pack(cert, key, pass, &pkcs12.EncodeOptions{
		Iterations:   tk.params.Iterations,
		FriendlyName: tk.params.FriendlyName,
		Random:       tk.params.Random,
	})
	if err != nil {
		return nil, err
	}

	tk.logger.Infof("toolkit: created PKCS #12 archive for %s", cert.Subject.CommonName)

	return archive, nil
}

// Returns true if the certificate and private key share the same
// RSA modulus.
func (tk *Toolkit) VerifyMatch(certData, keyData []byte) (bool, error) {
	matches, err := matcher.MatchBytes(certData, keyData, nil)
	if err != nil {
		return false, err
	}
	tk.logger.Debug("toolkit: key match result", "matches", matches)
	return matches, nil
}

// Decrypts a PKCS #12 archive and returns its certificate and private
// key PEM encoded. An empty password is permitted. The password is
// cleared before returning.
func (tk *Toolkit) ExtractFromPKCS12(data []byte, password secret.Password) (*Extracted, error) {

	var pass []byte
	if password != nil {
		defer password.Clear()
		if !password.Empty() {
			b, err := password.Bytes()
			if err != nil {
				return nil, err
			}
			pass = b
		}
	}

	contents, err := pkcs12.Unpack(data, pass)
	if err != nil {
		if errors.Is(err, common.ErrAuthenticationFailed) {
			tk.logger.Security(logging.SecurityLogEntry{
				Severity:    logging.SeverityMedium,
				Category:    logging.CategoryAuthentication,
				Description: "PKCS #12 integrity check or decryption failed",
				Source:      logging.SourceToolkit,
			})
		}
		return nil, err
	}

	extracted := &Extracted{
		FriendlyName:     contents.FriendlyName,
		CertificateCount: contents.CertificateCount,
		KeyCount:         contents.KeyCount,
	}
	if contents.Certificate != nil {
		if extracted.Certificate, err = codec.EncodeCertificate(contents.Certificate); err != nil {
			return nil, err
		}
	}
	if contents.PrivateKey != nil {
		if extracted.PrivateKey, err = codec.EncodePrivateKey(contents.PrivateKey); err != nil {
			return nil, err
		}
	}

	tk.logger.Infof("toolkit: extracted %d certificate(s) and %d key(s) from PKCS #12 archive",
		extracted.CertificateCount, extracted.KeyCount)

	return extracted, nil
}

// Re-encodes a PEM private key as a password protected PKCS #8
// EncryptedPrivateKeyInfo. The password is cleared before returning.
func (tk *Toolkit) EncryptPrivateKey(keyData []byte, password secret.Password) ([]byte, error) {

	if password == nil {
		return nil, codec.ErrPrivateKeyPasswordRequired
	}
	defer password.Clear()

	if password.Empty() {
		return nil, codec.ErrPrivateKeyPasswordRequired
	}

	key, err := codec.ParsePrivateKey(keyData, nil)
	if err != nil {
		return nil, err
	}
	pass, err := password.Bytes()
	if err != nil {
		return nil, err
	}
	return codec.EncodeEncryptedPrivateKey(key, pass)
}
