package service

import (
	"context"
	"time"

	"kindred/internal/cache"
	"kindred/internal/models"
	"kindred/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// IdentityResolver maps a bearer token to the caller's profile id.
type IdentityResolver interface {
	ResolveCaller(ctx context.Context, token string) (string, error)
}

// JWTResolver verifies HMAC-signed tokens and looks up the profile owned by
// the token subject. Subject to profile lookups are cached in Redis.
type JWTResolver struct {
	secret []byte
	store  repository.Store
	rdb    *redis.Client
	ttl    time.Duration
}

// NewJWTResolver returns a resolver. rdb may be nil to disable caching.
func NewJWTResolver(secret string, store repository.Store, rdb *redis.Client, ttl time.Duration) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), store: store, rdb: rdb, ttl: ttl}
}

// ParseSubject validates token and returns its "sub" claim.
func (r *JWTResolver) ParseSubject(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, models.NewUnauthenticatedError("invalid signing method")
		}
		return r.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", models.NewUnauthenticatedError("invalid or expired token")
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", models.NewUnauthenticatedError("token has no subject")
	}
	return sub, nil
}

// ResolveCaller returns the id of the profile the token belongs to. A valid
// token whose subject has no profile is unauthenticated.
func (r *JWTResolver) ResolveCaller(ctx context.Context, token string) (string, error) {
	sub, err := r.ParseSubject(token)
	if err != nil {
		return "", err
	}

	profileID, err := cache.Aside(ctx, r.rdb, cache.IdentityKey(sub), r.ttl, func(ctx context.Context) (string, error) {
		profile, err := r.store.Profiles().GetByUserID(ctx, sub)
		if err != nil {
			return "", err
		}
		return profile.ID, nil
	})
	if models.IsCode(err, models.CodeNotFound) {
		return "", models.NewUnauthenticatedError("no profile for this identity")
	}
	return profileID, err
}

// IssueToken signs a token for subject. Used by seeding and tests.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
