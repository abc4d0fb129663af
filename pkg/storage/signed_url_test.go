package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("sheet-1", "sheets/nocturne.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	sheetID, path, parsedExpiry, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "sheet-1", sheetID)
	require.Equal(t, "sheets/nocturne.pdf", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := &SignedURLSigner{secret: []byte("secret"), ttl: -time.Minute}
	token, _, err := signer.Generate("sheet-1", "sheets/nocturne.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token)
	require.Error(t, err)
}

func TestSignedURLSignerTamperedSignature(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("sheet-1", "sheets/nocturne.pdf")
	require.NoError(t, err)

	_, _, _, err = NewSignedURLSigner("other-secret", time.Hour).Parse(token)
	require.Error(t, err)
}
