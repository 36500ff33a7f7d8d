package dto

// TokenResponse is returned by the mock login endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}
