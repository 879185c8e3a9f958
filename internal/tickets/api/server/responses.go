package server

type TokenResponse struct {
	AccessToken string `json:"access_token"` //nolint:tagliatelle
	TokenType   string `json:"token_type"`   //nolint:tagliatelle
}

type MsgResponse struct {
	Msg string `json:"msg"`
}

type HealthResponse struct {
	Message string `json:"message"`
}
