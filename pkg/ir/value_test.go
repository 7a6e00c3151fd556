package ir

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValue_SealedSwitch(t *testing.T) {
	values := []IRValue{IRString("a"), IRInt(1), IRBool(true), IRArray{}, IRObject{}}

	for _, v := range values {
		// Sealed interface - can type switch exhaustively
		switch v.(type) {
		case IRString, IRInt, IRBool, IRArray, IRObject:
			// Expected
		default:
			t.Fatalf("unexpected type %T", v)
		}
	}
}

func TestSortedKeys(t *testing.T) {
	obj := IRObject{"zebra": IRInt(1), "alpha": IRInt(2), "beta": IRInt(3), "Beta": IRInt(4)}
	assert.Equal(t, []string{"Beta", "alpha", "beta", "zebra"}, obj.SortedKeys())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    IRValue
		wantErr string
	}{
		{"object", `{"a":[1,"x",true]}`, IRObject{"a": IRArray{IRInt(1), IRString("x"), IRBool(true)}}, ""},
		{"int", `7`, IRInt(7), ""},
		{"float rejected", `1.5`, nil, "not an int64"},
		{"exponent rejected", `1e3`, nil, "not an int64"},
		{"null rejected", `{"a":null}`, nil, "null"},
		{"trailing data", `1 2`, nil, "trailing"},
		{"syntax error", `{`, nil, "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIRObject_JSONRoundTrip(t *testing.T) {
	obj := IRObject{"b": IRArray{IRInt(1)}, "a": IRString("<x>")}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"\u003cx\u003e","b":[1]}`, string(data))

	canonical, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x>","b":[1]}`, string(canonical))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.NoError(t, enc.Encode(obj))
	assert.Equal(t, string(canonical)+"\n", buf.String())

	var back IRObject
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, obj, back)

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &back))
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{"n": 3, "s": []any{"a", int64(2)}})
	require.NoError(t, err)
	assert.Equal(t, IRObject{"n": IRInt(3), "s": IRArray{IRString("a"), IRInt(2)}}, v)

	_, err = FromGo(2.5)
	assert.Error(t, err)

	_, err = FromGo(struct{}{})
	assert.Error(t, err)
}
