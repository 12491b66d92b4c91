package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entraidehub/go-auth"
)

func validRegistration() auth.RegistrationCreatePayload {
	return auth.RegistrationCreatePayload{
		FirstName:       "Marie",
		LastName:        "Dupont",
		Email:           "marie@example.com",
		Phone:           "+33612345678",
		Role:            "benevole",
		Password:        "s3cret-enough",
		ConfirmPassword: "s3cret-enough",
	}
}

func TestLoginRequestValidation(t *testing.T) {
	valid := auth.LoginRequest{Identifier: "marie@example.com", Password: "s3cret-enough"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, auth.LoginRequest{Password: "s3cret-enough"}.Validate())
	assert.Error(t, auth.LoginRequest{Identifier: "not-an-email", Password: "x"}.Validate())
	assert.Error(t, auth.LoginRequest{Identifier: "marie@example.com"}.Validate())
}

func TestRegistrationCreatePayloadValidation(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		assert.NoError(t, validRegistration().Validate())
	})

	t.Run("phone is optional", func(t *testing.T) {
		payload := validRegistration()
		payload.Phone = ""
		assert.NoError(t, payload.Validate())
	})

	t.Run("national format parses for the default region", func(t *testing.T) {
		payload := validRegistration()
		payload.Phone = "06 12 34 56 78"
		assert.NoError(t, payload.Validate())
	})

	t.Run("garbage phone is rejected", func(t *testing.T) {
		payload := validRegistration()
		payload.Phone = "not-a-phone"
		err := payload.Validate()
		assert.Error(t, err)
		assert.Contains(t, auth.FormatValidationErrorToMap(err), "phone_number")
	})

	t.Run("admin is not a self-service role", func(t *testing.T) {
		payload := validRegistration()
		payload.Role = "admin"
		assert.Error(t, payload.Validate())
	})

	t.Run("password confirmation must match", func(t *testing.T) {
		payload := validRegistration()
		payload.ConfirmPassword = "different"
		err := payload.Validate()
		assert.Error(t, err)
		assert.Contains(t, auth.FormatValidationErrorToMap(err), "confirm_password")
	})

	t.Run("short password is rejected", func(t *testing.T) {
		payload := validRegistration()
		payload.Password = "abc"
		payload.ConfirmPassword = "abc"
		assert.Error(t, payload.Validate())
	})
}

func TestResetPasswordPayloadValidation(t *testing.T) {
	valid := auth.ResetPasswordPayload{Password: "s3cret-enough", ConfirmPassword: "s3cret-enough"}
	assert.NoError(t, valid.Validate())

	mismatch := auth.ResetPasswordPayload{Password: "s3cret-enough", ConfirmPassword: "other"}
	assert.Error(t, mismatch.Validate())
}

func TestChangeRolePayloadValidation(t *testing.T) {
	assert.NoError(t, auth.ChangeRolePayload{Role: "admin"}.Validate())
	assert.NoError(t, auth.ChangeRolePayload{Role: "partenaire"}.Validate())
	assert.Error(t, auth.ChangeRolePayload{Role: "superuser"}.Validate())
	assert.Error(t, auth.ChangeRolePayload{}.Validate())
}

func TestChangeStatusPayloadValidation(t *testing.T) {
	assert.NoError(t, auth.ChangeStatusPayload{Status: "suspended", Reason: "charter violation"}.Validate())
	assert.NoError(t, auth.ChangeStatusPayload{Status: "banned"}.Validate())

	// pending is assigned at registration, never through review
	assert.Error(t, auth.ChangeStatusPayload{Status: "pending"}.Validate())
	assert.Error(t, auth.ChangeStatusPayload{Status: "archived"}.Validate())
}

func TestValidateStringEquals(t *testing.T) {
	rule := auth.ValidateStringEquals("expected")
	assert.NoError(t, rule("expected"))
	assert.Error(t, rule("other"))
	assert.Error(t, rule(42))
}

func TestFormatValidationErrorToMap(t *testing.T) {
	assert.Empty(t, auth.FormatValidationErrorToMap(nil))

	err := auth.LoginRequest{}.Validate()
	out := auth.FormatValidationErrorToMap(err)
	assert.Contains(t, out, "identifier")
	assert.Contains(t, out, "password")
}
