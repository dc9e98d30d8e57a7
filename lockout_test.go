package auth_test

import (
	"testing"
	"time"

	auth "github.com/imAdityaSharma/doc-auth"
	"github.com/stretchr/testify/assert"
)

func TestRecordFailedLogin(t *testing.T) {
	now := time.Now()
	account := &auth.Account{}

	for i := 1; i < auth.MaxFailedLogins; i++ {
		account.RecordFailedLogin(now)
		assert.Equal(t, i, account.FailedLoginAttempts)
		assert.Nil(t, account.AccountLockedUntil, "no lock before the threshold")
	}

	account.RecordFailedLogin(now)
	assert.Equal(t, auth.MaxFailedLogins, account.FailedLoginAttempts)
	if assert.NotNil(t, account.AccountLockedUntil) {
		assert.Equal(t, now.Add(auth.LockoutWindow), *account.AccountLockedUntil)
	}
	assert.True(t, account.IsLocked(now))
}

func TestIsLocked(t *testing.T) {
	now := time.Now()

	t.Run("no lock", func(t *testing.T) {
		account := &auth.Account{}
		assert.False(t, account.IsLocked(now))
	})

	t.Run("active lock", func(t *testing.T) {
		until := now.Add(10 * time.Minute)
		account := &auth.Account{AccountLockedUntil: &until}
		assert.True(t, account.IsLocked(now))
	})

	t.Run("expired lock reads as unlocked", func(t *testing.T) {
		until := now.Add(-time.Minute)
		account := &auth.Account{AccountLockedUntil: &until}
		assert.False(t, account.IsLocked(now))
	})
}

func TestClearExpiredLock(t *testing.T) {
	now := time.Now()

	t.Run("keeps active lock", func(t *testing.T) {
		until := now.Add(time.Minute)
		account := &auth.Account{AccountLockedUntil: &until, FailedLoginAttempts: 5}

		assert.False(t, account.ClearExpiredLock(now))
		assert.NotNil(t, account.AccountLockedUntil)
	})

	t.Run("clears only the lock timestamp", func(t *testing.T) {
		until := now.Add(-time.Minute)
		account := &auth.Account{AccountLockedUntil: &until, FailedLoginAttempts: 5}

		assert.True(t, account.ClearExpiredLock(now))
		assert.Nil(t, account.AccountLockedUntil)
		// the counter survives, another failure re-locks immediately
		assert.Equal(t, 5, account.FailedLoginAttempts)

		account.RecordFailedLogin(now)
		assert.True(t, account.IsLocked(now))
	})
}

func TestResetFailedLogins(t *testing.T) {
	now := time.Now()
	account := &auth.Account{}
	for i := 0; i < auth.MaxFailedLogins; i++ {
		account.RecordFailedLogin(now)
	}
	assert.True(t, account.IsLocked(now))

	account.ResetFailedLogins()
	assert.Equal(t, 0, account.FailedLoginAttempts)
	assert.Nil(t, account.LastFailedLogin)
	assert.Nil(t, account.AccountLockedUntil)
	assert.False(t, account.IsLocked(now))
}
