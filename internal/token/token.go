package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"learn-quiz-service/internal/domain"
)

const defaultIssuer = "learn-quiz-service"

// Claims binds one quiz issuance to a user and a deadline.
// Subject carries the user id and ID the single-use token id.
type Claims struct {
	QuizID      string              `json:"qid"`
	Lang        string              `json:"lang"`
	Mode        domain.Mode         `json:"mode"`
	DurationSec int                 `json:"dur"`
	Seed        int64               `json:"seed"`
	Questions   []string            `json:"qs"`
	OptionOrder map[string][]string `json:"ord"`
	jwt.RegisteredClaims
}

// UserID returns the user the token was issued to.
func (c *Claims) UserID() string { return c.Subject }

// Deadline returns the token expiry.
func (c *Claims) Deadline() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Expired reports whether now is past the deadline.
func (c *Claims) Expired(now time.Time) bool {
	return now.After(c.Deadline())
}

// IssuedOption reports whether optionID was part of the recorded order for questionID.
func (c *Claims) IssuedOption(questionID, optionID string) bool {
	for _, id := range c.OptionOrder[questionID] {
		if id == optionID {
			return true
		}
	}
	return false
}

// Signer signs and verifies quiz tokens with an HMAC key.
type Signer struct {
	secret []byte
	issuer string
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, issuer: defaultIssuer}
}

// Sign serializes and MACs the claims.
func (s *Signer) Sign(c Claims) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("token signer has no secret")
	}
	c.Issuer = s.issuer
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &c)
	return t.SignedString(s.secret)
}

// Parse verifies signature and structure only. Ownership and expiry are
// checked by the caller so each failure keeps its own error kind.
func (s *Signer) Parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, domain.ErrTokenMissing
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if claims.Issuer != s.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", domain.ErrTokenInvalid, claims.Issuer)
	}
	if claims.QuizID == "" || claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: incomplete claims", domain.ErrTokenInvalid)
	}
	return claims, nil
}
