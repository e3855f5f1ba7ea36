package models

// Response is the envelope of every JSON body the API returns. Errors maps
// request fields to what is wrong with them.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// LoginResponse is the data returned by register and login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
