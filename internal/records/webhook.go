package records

import "context"

// trimmedPayloadKeys lists the heavyweight payload keys stripped from webhook
// notifications when trimming is enabled: offers, previews, and attachments
// can dwarf the record body itself.
var trimmedPayloadKeys = []string{
	"credential_request",
	"cred_request",
	"credential_proposal",
	"cred_proposal",
	"credential_offer",
	"cred_offer",
	"credential_preview",
	"cred_preview",
	"values",
	"credentials~attach",
	"offers~attach",
}

// TrimWebhookPayload returns a copy of the payload with the heavyweight keys
// removed.
func TrimWebhookPayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	for _, k := range trimmedPayloadKeys {
		delete(out, k)
	}
	return out
}

// NoopResponder discards webhook notifications. An absent responder behaves
// the same; the type exists for wiring call sites that require one.
type NoopResponder struct{}

// Send discards the payload.
func (NoopResponder) Send(context.Context, string, map[string]any) error { return nil }
