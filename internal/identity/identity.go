// Package identity verifies bearer tokens into principals and holds the
// authorization predicates shared by every core operation.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"campusflow/internal/apperr"
	"campusflow/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("identity: missing bearer token")
	ErrInvalidToken = errors.New("identity: invalid token")
)

type claims struct {
	jwt.RegisteredClaims
	Role            model.UserRole `json:"role"`
	ProfileComplete bool           `json:"profile_complete"`
}

// Verifier checks HMAC signed tokens issued by the campus identity provider.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify parses a raw token and returns the principal it names.
func (v *Verifier) Verify(raw string) (model.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Principal{}, ErrMissingToken
	}

	var c claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return model.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	if !c.Role.Valid() {
		return model.Principal{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, c.Role)
	}

	return model.Principal{
		UserID:          userID,
		Role:            c.Role,
		ProfileComplete: c.ProfileComplete,
	}, nil
}

// Issuer signs tokens for local tooling and tests. Production tokens come
// from the external identity provider.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewIssuer(secret, issuer string) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (i *Issuer) Issue(principal model.Principal, ttl time.Duration) (string, error) {
	now := i.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.UserID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Role:            principal.Role,
		ProfileComplete: principal.ProfileComplete,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("identity: failed to sign token: %w", err)
	}
	return signed, nil
}

// RequireAuthenticated fails for an anonymous principal.
func RequireAuthenticated(p model.Principal) error {
	if p.Anonymous() {
		return apperr.Unauthorized("authentication required")
	}
	return nil
}

// RequireAdmin allows admins and super-admins.
func RequireAdmin(p model.Principal) error {
	if err := RequireAuthenticated(p); err != nil {
		return err
	}
	if !p.Role.Administrative() {
		return apperr.Forbidden("admin access required")
	}
	return nil
}

// RequireParticipant allows only principals that may hold registrations.
func RequireParticipant(p model.Principal) error {
	if err := RequireAuthenticated(p); err != nil {
		return err
	}
	if p.Role.Administrative() {
		return apperr.Forbidden("admins cannot register for events")
	}
	return nil
}

// CanManageEvent allows the organizer of the event or any super-admin.
func CanManageEvent(p model.Principal, event model.Event) error {
	if err := RequireAdmin(p); err != nil {
		return err
	}
	if p.Role == model.UserRoleSuperAdmin || event.OrganizerID == p.UserID {
		return nil
	}
	return apperr.Forbidden("only the organizer can manage this event")
}

// CanViewRegistration allows the owner of the registration or any admin.
func CanViewRegistration(p model.Principal, reg model.Registration) error {
	if err := RequireAuthenticated(p); err != nil {
		return err
	}
	if reg.UserID == p.UserID || p.Role.Administrative() {
		return nil
	}
	return apperr.Forbidden("registration belongs to another user")
}
