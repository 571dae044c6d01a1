package types

// TagsList is the body returned by GET <registry>/<image>/tags/list.
type TagsList struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// TokenResponse is the body returned by a bearer token realm.
//
// Registries implementing the distribution token spec return "token"; some OAuth2-flavoured
// servers only return "access_token".
type TokenResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"` //nolint:tagliatelle
}

// Value returns the bearer token carried by the response, if any.
func (t TokenResponse) Value() string {
	if t.Token != "" {
		return t.Token
	}

	return t.AccessToken
}
