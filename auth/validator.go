package auth

import (
	"unicode"

	"github.com/go-playground/validator/v10"

	"chatd/errors"
)

var validate = validator.New()

type Credentials struct {
	Name     string `validate:"required,min=3,max=32,alphanumunicode"`
	Password string `validate:"required,min=12,max=72"`
}

// ValidateRegister checks the shape of a registration request. Password
// complexity is verified separately because validator tags cannot express
// the four character classes.
func ValidateRegister(creds Credentials) error {
	if err := validate.Struct(creds); err != nil {
		return err
	}
	if !isPasswordComplex(creds.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

// ValidatePassword checks a standalone password change against the same
// rules as registration.
func ValidatePassword(password string) error {
	if err := validate.Var(password, "required,min=12,max=72"); err != nil {
		return err
	}
	if !isPasswordComplex(password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

// ValidateName checks a standalone name change against the same rules as
// registration.
func ValidateName(name string) error {
	return validate.Var(name, "required,min=3,max=32,alphanumunicode")
}

func isPasswordComplex(s string) bool {
	var (
		hasUpper   = false
		hasLower   = false
		hasNumber  = false
		hasSpecial = false
	)
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}
