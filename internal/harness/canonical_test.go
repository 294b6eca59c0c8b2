package harness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"null", nil, `null`},
		{"integral float", 1.0, `1`},
		{"fraction", 0.7, `0.7`},
		{"tiny", 1e-7, `1e-07`},
		{"no html escaping", "a<b&c", `"a<b&c"`},
		{"nfc", "e\u0301", "\"\u00e9\""},
		{"line separator kept", "a\u2028b", "\"a\u2028b\""},
		{"escaped backslash kept", `\u2028`, `"\\u2028"`},
		{"sorted keys", map[string]any{"b": int64(2), "a": []any{true, "x"}}, `{"a":[true,"x"],"b":2}`},
		{"string map", map[string]string{"V": "0.2"}, `{"V":"0.2"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...), which sorts before
	// U+FF21 in UTF-16 even though its code point is larger.
	got, err := MarshalCanonical(map[string]any{"Ａ": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"Ａ\":1}", string(got))
}

func TestMarshalCanonical_Errors(t *testing.T) {
	_, err := MarshalCanonical(math.Inf(1))
	assert.Error(t, err)

	_, err = MarshalCanonical(struct{}{})
	assert.ErrorContains(t, err, "unsupported type")
}
