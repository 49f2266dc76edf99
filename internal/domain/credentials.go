package domain

// Credentials is the server-issued token pair for an authenticated actor.
// The access token is a short-lived JWT carrying identity and expiry; the
// refresh token is opaque and only ever exchanged with the identity
// provider.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
