package tokens

import "time"

const (
	// DefaultConfirmationTokenValidity bounds how long a confirmation
	// link stays usable.
	DefaultConfirmationTokenValidity = 24 * time.Hour
	// DefaultResetTokenValidity bounds how long a password reset link
	// stays usable.
	DefaultResetTokenValidity = 24 * time.Hour
)

// CheckTokenAge reports whether a stored token sent at sentAt is still
// inside its validity window. A nil sentAt means no token was ever
// issued, which always reports false.
func CheckTokenAge(sentAt *time.Time, validFor time.Duration) bool {
	if sentAt == nil {
		return false
	}
	return sentAt.Add(validFor).After(time.Now())
}

// IsWithinThresholdPeriod checks if the given time is within the threshold
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}

	return CheckTokenAge(&t, duration), nil
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t time.Time, pattern string) (bool, error) {
	valid, err := IsWithinThresholdPeriod(t, pattern)
	if err != nil {
		return false, err
	}

	return !valid, nil
}
