package matcher

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"github.com/jeremyhahn/go-pki-tool/pkg/codec"
	"github.com/jeremyhahn/go-pki-tool/pkg/common"
)

var (
	ErrCertificateRequired = fmt.Errorf("%w: matcher: certificate required", common.ErrInvalidParameter)
	ErrPrivateKeyRequired  = fmt.Errorf("%w: matcher: private key required", common.ErrInvalidParameter)
)

// Returns true if the RSA modulus of the certificate's public key equals
// the modulus of the private key. Moduli are compared as integers; the
// public exponent is not part of the match rule.
func Match(cert *x509.Certificate, key *rsa.PrivateKey) (bool, error) {
	if cert == nil {
		return false, ErrCertificateRequired
	}
	if key == nil || key.N == nil {
		return false, ErrPrivateKeyRequired
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return false, fmt.Errorf("%w: %s", codec.ErrUnsupportedKeyAlgorithm, cert.PublicKeyAlgorithm)
	}
	return pub.N.Cmp(key.N) == 0, nil
}

// Parses a PEM or DER certificate and private key and reports whether
// they form a pair. The password is only used for encrypted keys.
func MatchBytes(certData, keyData, password []byte) (bool, error) {
	cert, err := codec.ParseCertificate(certData)
	if err != nil {
		return false, err
	}
	key, err := codec.ParsePrivateKey(keyData, password)
	if err != nil {
		return false, err
	}
	return Match(cert, key)
}
