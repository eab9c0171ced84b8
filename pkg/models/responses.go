package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// CallableRequest is the envelope of an RPC request body
type CallableRequest[T any] struct {
	Data T `json:"data"`
}

// CallableError is the error member of an RPC response
type CallableError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CallableResponse is the envelope of an RPC response; exactly one member is set
type CallableResponse struct {
	Result interface{}    `json:"result,omitempty"`
	Error  *CallableError `json:"error,omitempty"`
}
