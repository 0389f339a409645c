package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is not part of the issuance.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is not part of the issued option set.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidSubmission is returned for malformed request shapes.
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrTokenMissing is returned when a submit carries no token.
	ErrTokenMissing = errors.New("quiz token missing")
	// ErrTokenInvalid covers malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("quiz token invalid")
	// ErrTokenOwnership is returned when the token is bound to another user or quiz.
	ErrTokenOwnership = errors.New("quiz token not issued to caller")
	// ErrTokenExpired is returned when the submit arrives after the token deadline.
	ErrTokenExpired = errors.New("time limit exceeded")
	// ErrTokenUsed is returned when the token was already consumed by a submit.
	ErrTokenUsed = errors.New("quiz token already used")

	// ErrUnauthenticated is returned when the request carries no verified identity.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Kind classifies errors for transport mapping.
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindInternal     Kind = "INTERNAL"
)

// KindOf maps an error to its Kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidSubmission),
		errors.Is(err, ErrQuestionNotFound),
		errors.Is(err, ErrOptionNotFound):
		return KindValidation
	case errors.Is(err, ErrTokenMissing),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrUnauthenticated):
		return KindUnauthorized
	case errors.Is(err, ErrTokenOwnership),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenUsed):
		return KindForbidden
	case errors.Is(err, ErrQuizNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

var sentinels = []error{
	ErrQuizNotFound, ErrQuestionNotFound, ErrOptionNotFound, ErrInvalidSubmission,
	ErrTokenMissing, ErrTokenInvalid, ErrTokenOwnership, ErrTokenExpired, ErrTokenUsed,
	ErrUnauthenticated,
}

// Sentinel returns the package sentinel err wraps, or nil.
func Sentinel(err error) error {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s
		}
	}
	return nil
}

// SentinelFor recovers a sentinel from its wire message. Unknown messages
// fall back to the generic sentinel of the kind.
func SentinelFor(kind Kind, message string) error {
	for _, s := range sentinels {
		if s.Error() == message {
			return s
		}
	}
	switch kind {
	case KindValidation:
		return ErrInvalidSubmission
	case KindUnauthorized:
		return ErrUnauthenticated
	case KindForbidden:
		return ErrTokenOwnership
	case KindNotFound:
		return ErrQuizNotFound
	}
	return nil
}
