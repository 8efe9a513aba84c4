package codec

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/youmark/pkcs8"
)

// Encodes a raw DER byte array as a PEM byte array using the provided
// block label. Base64 lines are wrapped at 64 characters.
func EncodePEM(label string, der []byte) ([]byte, error) {
	if label == "" {
		return nil, ErrInvalidLabel
	}
	buf := new(bytes.Buffer)
	err := pem.Encode(buf, &pem.Block{
		Type:  label,
		Bytes: der,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLabel, err)
	}
	return buf.Bytes(), nil
}

// Decodes the first PEM block in data and returns its label and DER bytes
func DecodePEM(data []byte) (string, []byte, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return "", nil, ErrInvalidEncodingPEM
	}
	return block.Type, block.Bytes, nil
}

// Returns true if data contains a PEM armored block
func IsPEM(data []byte) bool {
	return bytes.Contains(data, []byte("-----BEGIN "))
}

// Encodes an x509 certificate to PEM form
func EncodeCertificate(cert *x509.Certificate) ([]byte, error) {
	if cert == nil {
		return nil, ErrInvalidCertificate
	}
	return EncodePEM(PEM_TYPE_CERTIFICATE, cert.Raw)
}

// Encodes an ASN.1 DER Certificate Signing Request to PEM form
func EncodeCertificateRequest(der []byte) ([]byte, error) {
	return EncodePEM(PEM_TYPE_CERTIFICATE_REQUEST, der)
}

// Encodes an RSA private key to unencrypted PKCS #8 PEM form
func EncodePrivateKey(key *rsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, ErrNilKey
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrivateKey, err)
	}
	return EncodePEM(PEM_TYPE_PRIVATE_KEY, der)
}

// Encodes an RSA private key to password protected PKCS #8 PEM form
// using PBES2 with PBKDF2-HMAC-SHA256 and AES-256-CBC.
func EncodeEncryptedPrivateKey(key *rsa.PrivateKey, password []byte) ([]byte, error) {
	if key == nil {
		return nil, ErrNilKey
	}
	if len(password) == 0 {
		return nil, ErrPrivateKeyPasswordRequired
	}
	der, err := pkcs8.MarshalPrivateKey(key, password, encryptionOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrivateKey, err)
	}
	return EncodePEM(PEM_TYPE_ENCRYPTED_PRIVATE_KEY, der)
}
