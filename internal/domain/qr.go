package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// QR payload errors
var (
	ErrEmptyQRPayload      = errors.New("empty qr payload")
	ErrMalformedQRPayload  = errors.New("malformed qr payload")
	ErrIncompleteQRPayload = errors.New("qr payload missing required fields")
)

// QRPayload is the decoded content of a ticket QR code. Payloads are
// plaintext JSON; the algorithm field is carried for forward compatibility
// but not enforced.
type QRPayload struct {
	TicketID  string    `json:"ticket_id"`
	EventID   string    `json:"event_id"`
	IssuedAt  time.Time `json:"issued_at"`
	Version   string    `json:"version"`
	Algorithm string    `json:"algorithm,omitempty"`
}

// EncodeQRPayload serializes a payload to its wire form
func EncodeQRPayload(p *QRPayload) ([]byte, error) {
	return json.Marshal(p)
}

// DecodeQRPayload parses a raw QR payload. A nil result with nil error is
// never returned; malformed input yields an error the caller maps to
// INVALID_QR_FORMAT or CORRUPTED_QR_CODE.
func DecodeQRPayload(raw []byte) (*QRPayload, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyQRPayload
	}
	var p QRPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ErrMalformedQRPayload
	}
	if p.TicketID == "" || p.EventID == "" || p.Version == "" {
		return nil, ErrIncompleteQRPayload
	}
	return &p, nil
}
