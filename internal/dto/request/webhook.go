package request

// WebhookNotification is the minimal payload Mercado Pago posts. Only the
// payment id is trusted; everything else is re-fetched from the API.
type WebhookNotification struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}
