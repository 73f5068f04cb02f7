package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := RegisterRequest{
		Username:   "  alice  ",
		Password:   "  passphrase1234  ",
		ClientName: " Sweep Operator ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "alice", req.Username)
	assert.Equal(t, "passphrase1234", req.Password)
	assert.Equal(t, "Sweep Operator", req.ClientName)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := RegisterRequest{
		Username:   "bob",
		Password:   "passphrase1234",
		ClientName: "shop <script>alert('x')</script>",
	}
	SanitizeStruct(&req)

	assert.Contains(t, req.ClientName, "&lt;script&gt;")
	assert.NotContains(t, req.ClientName, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	dest := "  GDESTINATION  "
	req := InitializeAccountRequest{
		AccountID:        "00000000-0000-0000-0000-000000000001",
		Creator:          "GCREATOR",
		RecoveryAddress:  "GRECOVERY",
		SweepDestination: &dest,
	}
	SanitizeStruct(&req)

	assert.Equal(t, "GDESTINATION", *req.SweepDestination)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := InitializeAccountRequest{
		AccountID:        "00000000-0000-0000-0000-000000000001",
		Creator:          "GCREATOR",
		RecoveryAddress:  "GRECOVERY",
		SweepDestination: nil,
	}
	SanitizeStruct(&req)
	assert.Nil(t, req.SweepDestination)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"sweeper-001",
		"SWEEPER_002",
		"a.b.c",
		"simple123",
		"ABC-def_GHI.123",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"user name",   // space
		"user<001>",   // angle brackets
		"user;DROP",   // semicolon
		"",            // empty
		"hello world", // space
		"user\n001",   // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

// --- Request parsing ---

func TestInitializeAccountRequest_ParseExpiresAt(t *testing.T) {
	req := InitializeAccountRequest{ExpiresAt: "2026-06-01T13:00:00Z"}
	parsed, err := req.ParseExpiresAt()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 6, 1, 13, 0, 0, 0, time.UTC), parsed.UTC())
}

func TestInitializeAccountRequest_ParseExpiresAt_Invalid(t *testing.T) {
	req := InitializeAccountRequest{ExpiresAt: "next week"}
	_, err := req.ParseExpiresAt()
	assert.Error(t, err)
}
