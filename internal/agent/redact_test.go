package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactJSONArgs(t *testing.T) {
	got := RedactJSONArgs(`{"password":"pw","nested":{"access_token":"tok","keep":1},"arr":[{"secret":"s"}]}`)
	require.Contains(t, got, `"password":"***REDACTED***"`)
	require.Contains(t, got, `"access_token":"***REDACTED***"`)
	require.Contains(t, got, `"secret":"***REDACTED***"`)
	require.Contains(t, got, `"keep":1`)
}

func TestRedactJSONArgs_Phone(t *testing.T) {
	got := RedactJSONArgs(`{"phoneNumber":"+15550100","messageTemplate":"hi"}`)
	require.Contains(t, got, `"phoneNumber":"***REDACTED***"`)
	require.Contains(t, got, `"messageTemplate":"hi"`)
}

func TestRedactJSONArgs_NotJSON(t *testing.T) {
	require.Equal(t, "not json", RedactJSONArgs(" not json "))
	require.Equal(t, "", RedactJSONArgs(""))
}
