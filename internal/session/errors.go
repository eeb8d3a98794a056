package session

import (
	"context"
	"errors"
	"strings"

	"github.com/clinicbill/clinicbill/internal/platform/gotrue"
)

// Category is a user-facing class of authentication failure.
type Category string

const (
	CategoryEmailNotConfirmed  Category = "email_not_confirmed"
	CategoryInvalidCredentials Category = "invalid_credentials"
	CategoryRateLimited        Category = "rate_limited"
	CategoryUserNotFound       Category = "user_not_found"
	CategoryInvalidEmail       Category = "invalid_email"
	CategoryWeakPassword       Category = "weak_password"
	CategorySignupDisabled     Category = "signup_disabled"
	CategoryUserExists         Category = "user_exists"
	CategoryTimeout            Category = "timeout"
	CategoryOther              Category = "other"
)

var messages = map[Category]string{
	CategoryEmailNotConfirmed:  "Please confirm your email address before signing in. Check your inbox for the confirmation link.",
	CategoryInvalidCredentials: "Invalid email or password. Please check your credentials and try again.",
	CategoryRateLimited:        "Too many attempts. Please wait a moment and try again.",
	CategoryUserNotFound:       "No account found with this email address.",
	CategoryInvalidEmail:       "Please enter a valid email address.",
	CategoryWeakPassword:       "Password must be at least 6 characters long.",
	CategorySignupDisabled:     "New account registration is currently disabled.",
	CategoryUserExists:         "An account with this email already exists.",
	CategoryTimeout:            "The authentication service did not respond in time. Please try again.",
}

// rules are checked in order against the lower-cased provider message and
// error code. The first match wins.
var rules = []struct {
	category Category
	codes    []string
	phrases  []string
}{
	{CategoryEmailNotConfirmed, []string{"email_not_confirmed"}, []string{"email not confirmed"}},
	{CategoryInvalidCredentials, []string{"invalid_credentials", "invalid_grant"}, []string{"invalid login credentials", "invalid credentials"}},
	{CategoryRateLimited, []string{"over_request_rate_limit", "over_email_send_rate_limit"}, []string{"rate limit", "too many requests"}},
	{CategoryUserNotFound, []string{"user_not_found"}, []string{"user not found"}},
	{CategoryInvalidEmail, []string{"email_address_invalid", "validation_failed"}, []string{"unable to validate email address", "invalid email"}},
	{CategoryWeakPassword, []string{"weak_password"}, []string{"password should be at least", "password is too weak"}},
	{CategorySignupDisabled, []string{"signup_disabled"}, []string{"signups not allowed", "signups are disabled"}},
	{CategoryUserExists, []string{"user_already_exists", "email_exists"}, []string{"user already registered", "already been registered"}},
}

// Classify maps a provider error to its category and the message shown to
// the user. Unrecognised errors keep their own text.
func Classify(err error) (Category, string) {
	if err == nil {
		return "", ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout, messages[CategoryTimeout]
	}

	var code string
	var apiErr *gotrue.APIError
	if errors.As(err, &apiErr) {
		code = strings.ToLower(apiErr.Code)
	}
	text := strings.ToLower(err.Error())

	for _, r := range rules {
		for _, c := range r.codes {
			if code == c {
				return r.category, messages[r.category]
			}
		}
		for _, p := range r.phrases {
			if strings.Contains(text, p) {
				return r.category, messages[r.category]
			}
		}
	}
	return CategoryOther, err.Error()
}

// Message is Classify without the category.
func Message(err error) string {
	_, msg := Classify(err)
	return msg
}
