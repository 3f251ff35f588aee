package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSecret(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return []byte("tok"), nil }

	var out bytes.Buffer
	got, err := GetSecret("Access token", &out)
	require.NoError(t, err)
	assert.Equal(t, "tok", string(got))
	assert.True(t, strings.HasPrefix(out.String(), "Access token: "))
}

func TestGetSecret_Error(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }

	var out bytes.Buffer
	_, err := GetSecret("Access token", &out)
	assert.Error(t, err)
}
