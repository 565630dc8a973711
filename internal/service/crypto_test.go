package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptionRoundTrip(t *testing.T) {
	svc, err := NewEncryptionService(testKey)
	require.NoError(t, err)

	plain := "Driver={Tally ODBC Driver64};Server=localhost;Port=9000;PWD=s3cret"
	sealed, err := svc.Seal(plain)
	require.NoError(t, err)
	assert.True(t, IsEncrypted(sealed))
	assert.NotContains(t, sealed, "s3cret")

	again, err := svc.Seal(plain)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")

	opened, err := svc.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, opened)
}

func TestEncryptionRejects(t *testing.T) {
	_, err := NewEncryptionService("too-short")
	assert.Error(t, err)

	svc, err := NewEncryptionService(testKey)
	require.NoError(t, err)
	other, err := NewEncryptionService(strings.Repeat("z", 32))
	require.NoError(t, err)

	sealed, err := svc.Seal("DSN=Tally")
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.Error(t, err, "wrong key")

	_, err = svc.Open("DSN=Tally")
	assert.Error(t, err, "not sealed")

	_, err = svc.Open("enc:AAAA")
	assert.Error(t, err, "truncated")
}
