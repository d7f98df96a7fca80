// Package auth holds application credentials and obtains application-only
// bearer tokens through the OAuth2 client credentials grant.
package auth

import (
	"fmt"

	"github.com/Sternrassler/twitter-reader/pkg/transport"
)

// Credentials identify the application and, optionally, a user context.
type Credentials struct {
	AppName        string
	ConsumerKey    string
	ConsumerSecret string

	// AccessToken and AccessSecret switch the reader to OAuth1 user-context
	// signing when both are set.
	AccessToken  string
	AccessSecret string
}

// Validate checks that the application fields are present.
func (c Credentials) Validate() error {
	if c.AppName == "" {
		return fmt.Errorf("app name is required")
	}
	if c.ConsumerKey == "" {
		return fmt.Errorf("consumer key is required")
	}
	if c.ConsumerSecret == "" {
		return fmt.Errorf("consumer secret is required")
	}
	if (c.AccessToken == "") != (c.AccessSecret == "") {
		return fmt.Errorf("access token and access token secret must be set together")
	}
	return nil
}

// UserContext reports whether requests are signed on behalf of a user.
func (c Credentials) UserContext() bool {
	return c.AccessToken != "" && c.AccessSecret != ""
}

// OAuth1 returns the signing credentials, or nil for application-only auth.
func (c Credentials) OAuth1() *transport.OAuth1Credentials {
	if !c.UserContext() {
		return nil
	}
	return &transport.OAuth1Credentials{
		ConsumerKey:    c.ConsumerKey,
		ConsumerSecret: c.ConsumerSecret,
		AccessToken:    c.AccessToken,
		AccessSecret:   c.AccessSecret,
	}
}

// String omits the secrets.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{AppName: %q, UserContext: %v}", c.AppName, c.UserContext())
}
