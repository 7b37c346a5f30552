package dto

// LoginRequest carries merchant credentials.
type LoginRequest struct {
	MerchantCode string `json:"merchant_code" binding:"required"`
	Secret       string `json:"secret" binding:"required"`
}

// LoginResponse carries the issued API token.
type LoginResponse struct {
	Token string `json:"token"`
}
