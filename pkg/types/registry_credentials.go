package types

// RegistryCredentials holds basic auth credentials presented to a token realm.
type RegistryCredentials struct {
	Username string `json:"username"` // Registry username.
	Password string `json:"password"` // Registry token or password.
}

// IsEmpty reports whether no usable credentials are present.
func (c RegistryCredentials) IsEmpty() bool {
	return c.Username == "" || c.Password == ""
}
