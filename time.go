package auth

import "time"

// OTPExpiration is the fixed validity window of an issued code
const OTPExpiration = 5 * time.Minute

// IsWithinWindow reports whether now is not past start+window. The boundary
// itself is still inside the window.
func IsWithinWindow(start, now time.Time, window time.Duration) bool {
	return !now.After(start.Add(window))
}

// IsOutsideWindow is the negation of IsWithinWindow
func IsOutsideWindow(start, now time.Time, window time.Duration) bool {
	return !IsWithinWindow(start, now, window)
}
