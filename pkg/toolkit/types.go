package toolkit

import (
	"io"

	"github.com/jeremyhahn/go-pki-tool/pkg/csr"
	"github.com/jeremyhahn/go-pki-tool/pkg/logging"
)

var (
	CertificateExtensions = []string{".crt", ".cer", ".pem"}
	PrivateKeyExtensions  = []string{".key", ".pem"}
	PKCS12Extensions      = []string{".pfx", ".p12"}
)

type Params struct {
	Logger         *logging.Logger
	Random         io.Reader
	DefaultKeySize int
	Iterations     int
	FriendlyName   string
}

type CSRRequest struct {
	Subject csr.Subject `yaml:"subject" json:"subject"`
	KeySize int         `yaml:"key-size" json:"key_size"`
}

type CSRResult struct {
	CSR        []byte      `yaml:"csr" json:"csr"`
	PrivateKey []byte      `yaml:"private-key" json:"private_key"`
	Subject    csr.Subject `yaml:"subject" json:"subject"`
	KeySize    int         `yaml:"key-size" json:"key_size"`
	Insecure   bool        `yaml:"insecure" json:"insecure"`
	Warning    string      `yaml:"warning,omitempty" json:"warning,omitempty"`
}

// The PEM encoded contents of a PKCS #12 archive. Certificate and
// PrivateKey are nil when the archive does not carry them.
type Extracted struct {
	Certificate      []byte `yaml:"certificate,omitempty" json:"certificate,omitempty"`
	PrivateKey       []byte `yaml:"private-key,omitempty" json:"private_key,omitempty"`
	FriendlyName     string `yaml:"friendly-name,omitempty" json:"friendly_name,omitempty"`
	CertificateCount int    `yaml:"certificate-count" json:"certificate_count"`
	KeyCount         int    `yaml:"key-count" json:"key_count"`
}
