package keygen

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
	"slices"

	"github.com/jeremyhahn/go-pki-tool/pkg/common"
	"github.com/jeremyhahn/go-pki-tool/pkg/logging"
)

const (
	DefaultKeySize    = 2048
	MinSecureKeySize  = 2048
	PublicExponent    = 65537
	WeakKeySizeNotice = "keys smaller than 2048 bits are insecure and intended for testing or legacy systems only"
)

var (
	SupportedKeySizes = []int{512, 1024, 2048, 3072, 4096}

	ErrInvalidKeySize = fmt.Errorf("%w: keygen: unsupported RSA key size", common.ErrInvalidParameter)
)

type Params struct {
	Logger *logging.Logger
	Random io.Reader
}

// Generator creates RSA key pairs. It holds no mutable state
// and is safe for concurrent use.
type Generator struct {
	params *Params
}

type result struct {
	key *rsa.PrivateKey
	err error
}

// Creates a new RSA key generator. Missing parameters are replaced
// with a discard logger and crypto/rand.
func NewGenerator(params *Params) *Generator {
	if params == nil {
		params = &Params{}
	}
	if params.Logger == nil {
		params.Logger = logging.NewDiscardLogger()
	}
	if params.Random == nil {
		params.Random = rand.Reader
	}
	return &Generator{params: params}
}

// Returns nil if bits is one of the supported RSA key sizes
func ValidateKeySize(bits int) error {
	if !slices.Contains(SupportedKeySizes, bits) {
		return fmt.Errorf("%w: %d", ErrInvalidKeySize, bits)
	}
	return nil
}

// Returns true for key sizes that are permitted but considered
// insecure for production use.
func IsWeak(bits int) bool {
	return bits < MinSecureKeySize
}

// Generates a new RSA private key with the requested modulus size
// and a public exponent of 65537. Generation runs on a separate
// goroutine; when ctx is cancelled before it finishes, the context
// error is returned and the in-progress key is discarded.
func (g *Generator) Generate(ctx context.Context, bits int) (*rsa.PrivateKey, error) {

	if err := ValidateKeySize(bits); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.params.Logger.Debugf("keygen: generating %d-bit RSA key", bits)

	ch := make(chan result, 1)
	go func() {
		key, err := rsa.GenerateKey(g.params.Random, bits)
		ch <- result{key: key, err: err}
	}()

	select {
	case <-ctx.Done():
		g.params.Logger.Debugf("keygen: %d-bit RSA key generation cancelled", bits)
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		if IsWeak(bits) {
			g.params.Logger.Warnf("keygen: generated weak %d-bit RSA key", bits)
		}
		return res.key, nil
	}
}
