package actiontoken

import (
	"encoding/base64"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func sampleTokens() []Token {
	return []Token{
		{Email: "pat@example.org", Name: "Pat O'Brien", Date: "2024-06-01", Time: "10:00", BookingID: strPtr("6f1c2a8e-7d0b-4b5e-9a43-1d2f3e4a5b6c")},
		{Email: "pat@example.org", Name: "", Date: "2024-06-01", Time: "9:00 AM", BookingID: nil},
		{Email: "ünïcode@example.org", Name: "Zoë ☕ + / =", Date: "2024-12-31", Time: "17:30"},
	}
}

func TestBase64CodecRoundTrip(t *testing.T) {
	codec := NewBase64Codec()
	for _, tok := range sampleTokens() {
		s, err := codec.Encode(tok)
		require.NoError(t, err)
		assert.Equal(t, s, url.QueryEscape(s), "encoded token must be URL safe")

		got, err := codec.Decode(s)
		require.NoError(t, err)
		assert.Equal(t, tok, got)
	}
}

func TestBase64CodecAcceptsLegacyEncodings(t *testing.T) {
	payload := []byte(`{"email":"pat@example.org","name":"Pat","bookingDate":"2024-06-01","bookingTime":"10:00","bookingId":null}`)
	codec := NewBase64Codec()

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding} {
		got, err := codec.Decode(enc.EncodeToString(payload))
		require.NoError(t, err)
		assert.Equal(t, "pat@example.org", got.Email)
		assert.False(t, got.HasBookingID())
	}
}

func TestBase64CodecAcceptsNumericBookingID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		expects string
	}{
		{name: "number", id: `42`, expects: "42"},
		{name: "large number keeps every digit", id: `12345678901234567890`, expects: "12345678901234567890"},
		{name: "string", id: `"6f1c2a8e"`, expects: "6f1c2a8e"},
	}

	codec := NewBase64Codec()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := `{"email":"pat@example.org","bookingDate":"2024-06-01","bookingTime":"10:00","bookingId":` + tt.id + `}`
			got, err := codec.Decode(base64.StdEncoding.EncodeToString([]byte(payload)))
			require.NoError(t, err)
			require.True(t, got.HasBookingID())
			assert.Equal(t, tt.expects, *got.BookingID)
		})
	}

	_, err := codec.Decode(base64.StdEncoding.EncodeToString([]byte(`{"email":"pat@example.org","bookingId":true}`)))
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestBase64CodecRestoresPlusFromQueryDecoding(t *testing.T) {
	// "?>?>" encodes to a standard base64 string containing '+' and '/'.
	payload := []byte(`{"email":"a@b.co","name":"?>?>"}`)
	std := base64.StdEncoding.EncodeToString(payload)
	require.Contains(t, std, "+")

	mangled := strings.ReplaceAll(std, "+", " ")

	got, err := NewBase64Codec().Decode(mangled)
	require.NoError(t, err)
	assert.Equal(t, "?>?>", got.Name)
}

func TestBase64CodecRejectsGarbage(t *testing.T) {
	garbage := []string{
		"",
		"   ",
		"%%%not-base64%%%",
		base64.StdEncoding.EncodeToString([]byte("not json")),
		base64.StdEncoding.EncodeToString([]byte(`["array"]`)),
		base64.StdEncoding.EncodeToString([]byte(`null`)),
		base64.StdEncoding.EncodeToString([]byte(`{"name":"no email"}`)),
		base64.StdEncoding.EncodeToString([]byte(`{"email":42}`)),
	}

	codec := NewBase64Codec()
	for _, g := range garbage {
		assert.NotPanics(t, func() {
			_, err := codec.Decode(g)
			assert.ErrorIs(t, err, ErrMalformedToken, "input %q", g)
		})
	}
}

func TestSignedCodecRoundTrip(t *testing.T) {
	codec := NewSignedCodec("test-secret")
	for _, tok := range sampleTokens() {
		s, err := codec.Encode(tok)
		require.NoError(t, err)

		got, err := codec.Decode(s)
		require.NoError(t, err)
		assert.Equal(t, tok, got)
	}
}

func TestSignedCodecRejectsTampering(t *testing.T) {
	tok := sampleTokens()[0]

	signed, err := NewSignedCodec("test-secret").Encode(tok)
	require.NoError(t, err)

	_, err = NewSignedCodec("other-secret").Decode(signed)
	assert.ErrorIs(t, err, ErrMalformedToken)

	unsigned, err := NewBase64Codec().Encode(tok)
	require.NoError(t, err)
	_, err = NewSignedCodec("test-secret").Decode(unsigned)
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = NewSignedCodec("test-secret").Decode("")
	assert.ErrorIs(t, err, ErrMalformedToken)
}
