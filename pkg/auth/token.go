package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/twitter-reader/pkg/apierror"
	"github.com/Sternrassler/twitter-reader/pkg/logging"
	"github.com/Sternrassler/twitter-reader/pkg/transport"
)

// TokenPath is the OAuth2 token endpoint.
const TokenPath = "/oauth2/token"

// BearerTokenType is the only token type the API issues for application auth.
const BearerTokenType = "bearer"

// BearerToken is an application-only access token. It lives in memory only.
type BearerToken struct {
	AccessToken string
	TokenType   string
}

// Header returns the Authorization header value.
func (t BearerToken) Header() string {
	return "Bearer " + t.AccessToken
}

// TokenManager exchanges application credentials for a bearer token.
type TokenManager struct {
	logger zerolog.Logger
}

// NewTokenManager creates a TokenManager.
func NewTokenManager() *TokenManager {
	return &TokenManager{logger: logging.NewLogger("auth")}
}

// Exchange performs the client credentials grant over t. Any failure is an
// *apierror.AuthError; nothing is retried.
func (m *TokenManager) Exchange(ctx context.Context, t transport.Transport, creds Credentials) (BearerToken, error) {
	req := &transport.Request{
		Method: http.MethodPost,
		Path:   TokenPath,
		Header: http.Header{"Authorization": []string{"Basic " + basicCredentials(creds)}},
		Form:   url.Values{"grant_type": []string{"client_credentials"}},
	}

	resp, err := t.Send(ctx, req)
	if err != nil {
		return BearerToken{}, &apierror.AuthError{Reason: "token request failed", Err: err}
	}

	if err := apierror.Check(resp.StatusCode, resp.Status, resp.Body, ""); err != nil {
		m.logger.Error().Int("status", resp.StatusCode).Err(err).Msg("Bearer token exchange rejected")
		return BearerToken{}, &apierror.AuthError{Reason: "token exchange rejected", Err: err}
	}

	tokenType, err := jsonparser.GetString(resp.Body, "token_type")
	if err != nil || !strings.EqualFold(tokenType, BearerTokenType) {
		return BearerToken{}, &apierror.AuthError{Reason: fmt.Sprintf("unexpected token type %q", tokenType)}
	}

	accessToken, err := jsonparser.GetString(resp.Body, "access_token")
	if err != nil || accessToken == "" {
		return BearerToken{}, &apierror.AuthError{Reason: "response has no access token"}
	}

	m.logger.Info().Str("app", creds.AppName).Msg("Obtained application bearer token")

	return BearerToken{AccessToken: accessToken, TokenType: tokenType}, nil
}

// basicCredentials encodes key and secret as RFC 1738 escaped
// "key:secret" in base64.
func basicCredentials(creds Credentials) string {
	raw := url.QueryEscape(creds.ConsumerKey) + ":" + url.QueryEscape(creds.ConsumerSecret)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}
