package app

import "fmt"

// Category is the small set of user-facing failure classes the SSO flow
// exposes. Raw LMS fault codes never reach the end user, only logs.
type Category string

const (
	CategoryInvalidParameter      Category = "invalid-parameter"
	CategoryAccountNotFound       Category = "account-not-found"
	CategoryCourseNotFound        Category = "course-not-found"
	CategoryEnrollmentFailed      Category = "enrollment-failed"
	CategoryAccountCreationFailed Category = "account-creation-failed"
	CategoryTooManyAttempts       Category = "too-many-attempts"
	CategoryUnavailable           Category = "unavailable"
)

var userMessages = map[Category]string{
	CategoryInvalidParameter:      "Some of the provided details are not valid.",
	CategoryAccountNotFound:       "We could not find your account.",
	CategoryCourseNotFound:        "This course is not available right now.",
	CategoryEnrollmentFailed:      "We could not enroll you in this course. Please try again.",
	CategoryAccountCreationFailed: "We could not prepare your learning account. Please try again.",
	CategoryTooManyAttempts:       "Too many attempts. Please wait a moment and try again.",
	CategoryUnavailable:           "The learning platform is temporarily unavailable.",
}

// SSOError pairs a user-facing category with the underlying cause. The
// cause is for logs; Message is what the user sees.
type SSOError struct {
	Category Category
	Err      error
}

func (e *SSOError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sso %s: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("sso %s", e.Category)
}

func (e *SSOError) Unwrap() error { return e.Err }

// Message returns the human-readable text for the error's category.
func (e *SSOError) Message() string {
	if msg, ok := userMessages[e.Category]; ok {
		return msg
	}
	return userMessages[CategoryUnavailable]
}

func ssoErr(category Category, err error) *SSOError {
	return &SSOError{Category: category, Err: err}
}
