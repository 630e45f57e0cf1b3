package models

// TokenTypeBearer is the only token type issued by the login endpoint.
const TokenTypeBearer = "bearer"

// Token is returned on successful login
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
