package auth_test

import (
	"testing"

	auth "github.com/imAdityaSharma/doc-auth"
	"github.com/stretchr/testify/assert"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true, // bcrypt can hash empty strings!
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := auth.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)

			err = auth.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	h1, err := auth.HashPassword("same-password")
	assert.NoError(t, err)
	h2, err := auth.HashPassword("same-password")
	assert.NoError(t, err)

	// bcrypt embeds a fresh salt per call
	assert.NotEqual(t, h1, h2)
	assert.NoError(t, auth.ComparePasswordAndHash("same-password", h1))
	assert.NoError(t, auth.ComparePasswordAndHash("same-password", h2))
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := auth.HashPassword(password)
	assert.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		wantErr  bool
	}{
		{
			name:     "Matching password",
			password: password,
			hash:     hash,
			wantErr:  false,
		},
		{
			name:     "Wrong password",
			password: "wrongPassword",
			hash:     hash,
			wantErr:  true,
		},
		{
			name:     "Malformed hash",
			password: password,
			hash:     "not-a-bcrypt-digest",
			wantErr:  true,
		},
		{
			name:     "Empty hash",
			password: password,
			hash:     "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ComparePasswordAndHash(tt.password, tt.hash)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRandomPasswordHash(t *testing.T) {
	hash := auth.RandomPasswordHash()
	assert.NotEmpty(t, hash)

	// random hashes never verify against a guessable password
	assert.Error(t, auth.ComparePasswordAndHash("password", hash))
}
