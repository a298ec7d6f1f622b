package domain

// TokenPair is what the login and refresh endpoints return: the signed
// access token plus the opaque one-time refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"` // always "Bearer"
	ExpiresIn    int64  `json:"expiresIn"` // seconds until the access token expires
}

// LoginResult is the full login response payload: the tokens plus enough
// profile data for the client to render without a follow-up call.
type LoginResult struct {
	TokenPair

	UserID   string `json:"userId"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}
