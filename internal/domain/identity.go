package domain

import "fmt"

// Provider identifies a federated identity issuer.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

// ParseProvider validates a provider name.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderGoogle, ProviderApple:
		return Provider(s), nil
	}
	return "", InvalidInput("unknown identity provider %q", s)
}

// OAuthProfile is the set of facts a provider asserted about a user after
// its token was verified. It carries no decisions.
type OAuthProfile struct {
	Subject       string
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
}

func (p OAuthProfile) String() string {
	return fmt.Sprintf("OAuthProfile{subject_present=%t email_present=%t}", p.Subject != "", p.Email != "")
}

// OAuthCredential is what a client presents to sign in with a provider:
// either an ID token or, for providers that support it, an authorization
// code that the server exchanges for one.
type OAuthCredential struct {
	IDToken           string
	AuthorizationCode string
}
