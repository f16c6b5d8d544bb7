package model

// Credential is the id/refresh token pair issued by the identity provider.
// It is always replaced as a whole, never field by field.
type Credential struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

// IsZero reports whether no credential is held.
func (c Credential) IsZero() bool {
	return c.IDToken == "" && c.RefreshToken == ""
}
