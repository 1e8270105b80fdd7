// Package actiontoken encodes booking references into opaque, self-describing
// strings that can be embedded in reschedule and cancel links.
package actiontoken

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedToken is returned for any string a codec cannot turn back into a Token.
var ErrMalformedToken = errors.New("malformed action token")

// Token identifies a booking without any server-side lookup.
// Holding the encoded form grants reschedule and cancel capability.
type Token struct {
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Date      string  `json:"bookingDate"`
	Time      string  `json:"bookingTime"`
	BookingID *string `json:"bookingId"`
}

// HasBookingID reports whether the token references a persisted record.
func (t Token) HasBookingID() bool {
	return t.BookingID != nil && *t.BookingID != ""
}

// Codec turns tokens into URL-safe strings and back.
type Codec interface {
	Encode(t Token) (string, error)
	Decode(s string) (Token, error)
}

// Base64Codec is the unsigned codec: JSON wrapped in base64.
type Base64Codec struct{}

// NewBase64Codec creates the unsigned codec.
func NewBase64Codec() *Base64Codec {
	return &Base64Codec{}
}

// Encode serializes the token as unpadded URL-safe base64 JSON.
func (Base64Codec) Encode(t Token) (string, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal action token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// Decode accepts every base64 alphabet the codec has ever produced, with or
// without padding. A '+' turned into a space by form decoding is restored.
func (Base64Codec) Decode(s string) (Token, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "+")
	if s == "" {
		return Token{}, ErrMalformedToken
	}

	payload, err := decodeBase64(s)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return parsePayload(payload)
}

var encodings = []*base64.Encoding{
	base64.RawURLEncoding,
	base64.URLEncoding,
	base64.StdEncoding,
	base64.RawStdEncoding,
}

func decodeBase64(s string) ([]byte, error) {
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// payload mirrors Token on the wire. Older links carry bookingId as a JSON
// number, so it is decoded loosely.
type payload struct {
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Date      string          `json:"bookingDate"`
	Time      string          `json:"bookingTime"`
	BookingID json.RawMessage `json:"bookingId"`
}

func parsePayload(data []byte) (Token, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	id, err := parseBookingID(p.BookingID)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	t := Token{Email: p.Email, Name: p.Name, Date: p.Date, Time: p.Time, BookingID: id}
	return t, validate(t)
}

// parseBookingID accepts a string, a number or null.
func parseBookingID(raw json.RawMessage) (*string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch id := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &id, nil
	case json.Number:
		s := id.String()
		return &s, nil
	default:
		return nil, fmt.Errorf("bookingId must be a string or a number, got %T", v)
	}
}

func validate(t Token) error {
	if strings.TrimSpace(t.Email) == "" {
		return fmt.Errorf("%w: missing email", ErrMalformedToken)
	}
	return nil
}
