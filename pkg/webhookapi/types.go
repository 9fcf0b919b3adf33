package webhookapi

import "time"

// WebhookResponse is returned for POST /webhook.
type WebhookResponse struct {
	Success   bool   `json:"success"`
	OrderID   string `json:"order_id,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Action    string `json:"action,omitempty"`
	Quantity  string `json:"quantity,omitempty"`
	OrderType string `json:"order_type,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message"`
}

// HealthResponse is returned for GET /health.
type HealthResponse struct {
	Status      string    `json:"status"`
	IBConnected bool      `json:"ib_connected"`
	Timestamp   time.Time `json:"timestamp"`
}

// StatusResponse is returned for GET /status.
type StatusResponse struct {
	Connected bool   `json:"connected"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	ClientID  int    `json:"client_id"`
	State     string `json:"state"`
	LastError string `json:"last_error,omitempty"`
}

// MessageResponse is the generic success/error envelope for the connection
// endpoints.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SubmissionEntry is one journal record in GET /submissions.
type SubmissionEntry struct {
	Time     time.Time `json:"time"`
	ClOrdID  string    `json:"cl_ord_id"`
	Symbol   string    `json:"symbol"`
	Action   string    `json:"action"`
	Quantity string    `json:"quantity"`
	Kind     string    `json:"order_type"`
	Status   string    `json:"status"`
	OrderID  string    `json:"order_id,omitempty"`
	Message  string    `json:"message"`
}
