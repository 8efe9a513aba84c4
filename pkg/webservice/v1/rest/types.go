package rest

import (
	"fmt"

	"github.com/jeremyhahn/go-pki-tool/pkg/common"
)

const (
	// Maximum accepted request body size
	MaxRequestSize = 10 << 20
)

var (
	ErrInvalidRequestBody = fmt.Errorf("%w: rest: invalid request body", common.ErrMalformedInput)
	ErrHistoryDisabled    = fmt.Errorf("%w: rest: history log is disabled", common.ErrInvalidParameter)
)

// Certificate and key fields are PEM or DER encoded and
// transported as base64 strings
type PKCS12Request struct {
	Certificate []byte `yaml:"certificate" json:"certificate"`
	PrivateKey  []byte `yaml:"private-key" json:"private_key"`
	Password    string `yaml:"password" json:"password"`
}

type PKCS12Response struct {
	PKCS12 []byte `yaml:"pkcs12" json:"pkcs12"`
}

type ExtractRequest struct {
	PKCS12   []byte `yaml:"pkcs12" json:"pkcs12"`
	Password string `yaml:"password" json:"password"`
}

type MatchRequest struct {
	Certificate []byte `yaml:"certificate" json:"certificate"`
	PrivateKey  []byte `yaml:"private-key" json:"private_key"`
}

type MatchResponse struct {
	Matches bool `yaml:"matches" json:"matches"`
}

type StatusResponse struct {
	Name           string `yaml:"name" json:"name"`
	Version        string `yaml:"version" json:"version"`
	Uptime         string `yaml:"uptime" json:"uptime"`
	HistoryEnabled bool   `yaml:"history-enabled" json:"history_enabled"`
	AuthEnabled    bool   `yaml:"auth-enabled" json:"auth_enabled"`
}
