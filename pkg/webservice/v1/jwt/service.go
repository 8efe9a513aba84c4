package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jeremyhahn/go-pki-tool/pkg/common"
)

const (
	DefaultExpiration = time.Hour
)

var (
	ErrAuthorizationHeaderRequired = fmt.Errorf("%w: jwt/service: authorization header required", common.ErrAuthenticationFailed)
	ErrInvalidToken                = fmt.Errorf("%w: jwt/service: invalid token", common.ErrAuthenticationFailed)
	ErrSecretRequired              = errors.New("jwt/service: signing secret required")
)

type ServiceParams struct {
	Audience   string
	Expiration time.Duration
	Issuer     string
	Secret     []byte
}

// Service issues and verifies HMAC-SHA256 signed bearer tokens
type Service struct {
	params ServiceParams
	parser *jwt.Parser
}

func NewService(params ServiceParams) (*Service, error) {
	if len(params.Secret) == 0 {
		return nil, ErrSecretRequired
	}
	if params.Expiration == 0 {
		params.Expiration = DefaultExpiration
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if params.Audience != "" {
		opts = append(opts, jwt.WithAudience(params.Audience))
	}
	if params.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(params.Issuer))
	}
	return &Service{
		params: params,
		parser: jwt.NewParser(opts...),
	}, nil
}

// Generates a new signed token for the subject
func (service *Service) GenerateToken(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    service.params.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(service.params.Expiration)),
	}
	if service.params.Audience != "" {
		claims.Audience = jwt.ClaimStrings{service.params.Audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(service.params.Secret)
}

// Parses and validates the bearer token in the request
// authorization header
func (service *Service) ParseToken(r *http.Request) (*jwt.Token, *jwt.RegisteredClaims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil, ErrAuthorizationHeaderRequired
	}
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return nil, nil, ErrInvalidToken
	}
	return service.ParseTokenString(tokenString)
}

func (service *Service) ParseTokenString(tokenString string) (*jwt.Token, *jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := service.parser.ParseWithClaims(tokenString, claims, service.KeyFunc)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, nil, ErrInvalidToken
	}
	return token, claims, nil
}

func (service *Service) KeyFunc(token *jwt.Token) (interface{}, error) {
	return service.params.Secret, nil
}
