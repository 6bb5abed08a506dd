package types

// WebhookRequest is the official Dialogflow fulfillment request envelope.
// Only the fields this backend reads are mapped; the rest of the payload is
// ignored on decode.
type WebhookRequest struct {
	ResponseID  string      `json:"responseId"`
	Session     string      `json:"session"`
	QueryResult QueryResult `json:"queryResult"`
}

type QueryResult struct {
	QueryText                 string         `json:"queryText"`
	Action                    string         `json:"action"`
	Parameters                map[string]any `json:"parameters"`
	AllRequiredParamsPresent  bool           `json:"allRequiredParamsPresent"`
	Intent                    IntentRef      `json:"intent"`
	IntentDetectionConfidence float64        `json:"intentDetectionConfidence"`
	LanguageCode              string         `json:"languageCode"`
}

type IntentRef struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// TurnRequest is the simplified body accepted by the test endpoint: the
// already-extracted form of a webhook request.
type TurnRequest struct {
	Intent       string            `json:"intent"`
	Parameters   map[string]string `json:"parameters"`
	SessionID    string            `json:"sessionId,omitempty"`
	LanguageCode string            `json:"languageCode,omitempty"`
}

// WebhookResponse is the Dialogflow fulfillment response envelope.
type WebhookResponse struct {
	FulfillmentText     string               `json:"fulfillmentText"`
	FulfillmentMessages []FulfillmentMessage `json:"fulfillmentMessages"`
	Payload             *WebhookPayload      `json:"payload,omitempty"`
}

type FulfillmentMessage struct {
	Text *TextMessage `json:"text,omitempty"`
}

type TextMessage struct {
	Text []string `json:"text"`
}

// WebhookPayload carries backend metadata alongside the fulfillment text so
// the calling platform can inspect how the reply was produced.
type WebhookPayload struct {
	Intent       string            `json:"intent"`
	Confidence   float64           `json:"confidence"`
	ResponseID   *int64            `json:"responseId"`
	Conditions   map[string]string `json:"conditions"`
	SessionState string            `json:"sessionState,omitempty"`
	Source       string            `json:"source"`
}

// NewWebhookResponse builds the envelope for a fulfillment text, mirroring the
// text into fulfillmentMessages as Dialogflow expects.
func NewWebhookResponse(text string, payload *WebhookPayload) WebhookResponse {
	return WebhookResponse{
		FulfillmentText: text,
		FulfillmentMessages: []FulfillmentMessage{
			{Text: &TextMessage{Text: []string{text}}},
		},
		Payload: payload,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}
