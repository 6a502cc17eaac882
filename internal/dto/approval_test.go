package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumberCoercion(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  *float64
		set   bool
	}{
		{"number", `{"gpa":3.5}`, floatPtr(3.5), true},
		{"numeric string", `{"gpa":"3.5"}`, floatPtr(3.5), true},
		{"junk string", `{"gpa":"abc"}`, nil, true},
		{"null", `{"gpa":null}`, nil, true},
		{"boolean", `{"gpa":true}`, nil, true},
		{"absent", `{}`, nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var payload StudentPayload
			require.NoError(t, json.Unmarshal([]byte(tc.input), &payload))
			require.Equal(t, tc.set, payload.GPA.Set)
			if tc.want == nil {
				require.Nil(t, payload.GPA.Value)
			} else {
				require.Equal(t, *tc.want, *payload.GPA.Value)
			}
		})
	}
}

func TestNumberMarshalNull(t *testing.T) {
	raw, err := json.Marshal(Number{})
	require.NoError(t, err)
	require.Equal(t, "null", string(raw))

	raw, err = json.Marshal(Number{Value: floatPtr(2)})
	require.NoError(t, err)
	require.Equal(t, "2", string(raw))
}

func floatPtr(f float64) *float64 {
	return &f
}
