package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAccountMessageValidate(t *testing.T) {
	t.Run("complete payload passes", func(t *testing.T) {
		assert.NoError(t, registerMessage("valid@x.com").Validate())
	})

	t.Run("date of birth and government id are mandatory", func(t *testing.T) {
		msg := registerMessage("valid@x.com")
		msg.DateOfBirth = ""
		msg.AadharSSN = ""

		err := msg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "date_of_birth")
		assert.Contains(t, err.Error(), "aadhar_ssn")
	})

	t.Run("malformed date of birth is rejected", func(t *testing.T) {
		msg := registerMessage("valid@x.com")
		msg.DateOfBirth = "12-04-1990"

		err := msg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "date_of_birth")
	})

	t.Run("doctor without license is rejected", func(t *testing.T) {
		msg := registerMessage("valid@x.com")
		msg.Role = "doctor"

		err := msg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "medical_license")
	})

	t.Run("paramedic without certification is rejected", func(t *testing.T) {
		msg := registerMessage("valid@x.com")
		msg.Role = "paramedic"

		err := msg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "emt_certification_number")
	})
}
