package types

// incoming credential payload (POST and PUT); fields arrive in plain text
// and are never stored as such
type InputCredential struct {
	Primary     string `json:"primary" validate:"required"`
	Secondary   string `json:"secondary,omitempty"`
	Description string `json:"description,omitempty"`
}
