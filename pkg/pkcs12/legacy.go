package pkcs12

import (
	"crypto/rsa"
	"errors"
	"fmt"

	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// Fills the certificates from an archive holding a 40-bit RC2
// encrypted safe. The iteration counts and MAC have already been
// checked by Unpack. A private key read from the other safes is
// kept.
func (c *Contents) addLegacy(data, password []byte) error {
	key, cert, caCerts, err := gopkcs12.DecodeChain(data, string(password))
	if err != nil {
		if errors.Is(err, gopkcs12.ErrIncorrectPassword) {
			return ErrIncorrectPassword
		}
		return fmt.Errorf("%w: %s", ErrInvalidPFX, err)
	}

	c.Certificate = cert
	c.CertificateCount = 1 + len(caCerts)
	if c.FriendlyName == "" {
		c.FriendlyName = c.keyName
	}
	if c.PrivateKey != nil {
		return nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("%w: private key type %T", ErrUnsupportedAlgorithm, key)
	}
	c.PrivateKey = rsaKey
	c.KeyCount = 1
	return nil
}
