package tokens

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// DefaultPasswordMinLength applies when a policy has no explicit minimum
const DefaultPasswordMinLength = 8

// MinLengthPolicy rejects candidate passwords shorter than Min
type MinLengthPolicy struct {
	Min int
}

func (p MinLengthPolicy) ValidatePassword(password string) error {
	min := p.Min
	if min <= 0 {
		min = DefaultPasswordMinLength
	}

	err := validation.Validate(password,
		validation.Required,
		validation.Length(min, 0),
	)
	if err != nil {
		if clone := ErrWeakPassword.Clone(); clone != nil {
			clone.Source = err
			return clone
		}
		return ErrWeakPassword
	}

	return nil
}

// DefaultPasswordPolicy returns the policy used when none is injected
func DefaultPasswordPolicy() PasswordPolicy {
	return MinLengthPolicy{Min: DefaultPasswordMinLength}
}
