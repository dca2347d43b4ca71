package sftpbackend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// New only validates configuration and builds the ssh.ClientConfig;
// it never dials, so it is testable without a live SSH server. The
// request/response file operations (Write, Read, ReadDir, ...) all go
// through dial() and therefore need a real sftp server to exercise -
// out of scope for a unit test here.

func TestNewRequiresAnAuthMethod(t *testing.T) {
	_, err := New("/repo", Config{Addr: "example.invalid:22", User: "backup"})
	assert.Error(t, err)
}

func TestNewAcceptsPasswordAuth(t *testing.T) {
	s, err := New("/repo", Config{Addr: "example.invalid:22", User: "backup", Password: "hunter2"})
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestNewRejectsMalformedPrivateKey(t *testing.T) {
	_, err := New("/repo", Config{Addr: "example.invalid:22", User: "backup", PrivateKeyPEM: []byte("not a real key")})
	assert.Error(t, err)
}
