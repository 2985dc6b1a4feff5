// Package service contains application services for token validation and script sync.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/and161185/botscripts/internal/errs"
	"github.com/and161185/botscripts/internal/limiter"
	"github.com/and161185/botscripts/internal/metrics"
	"github.com/and161185/botscripts/internal/model"
	"github.com/and161185/botscripts/internal/repository"
)

// TokenService resolves bearer tokens to accounts.
type TokenService interface {
	// Validate normalizes the value and returns the matching fresh token.
	Validate(ctx context.Context, value string) (model.Token, error)
	// ValidateWithIP is Validate guarded by the per-client failure limiter.
	ValidateWithIP(ctx context.Context, value, ip string) (model.Token, error)
}

type TokenServiceImpl struct {
	tokens repository.TokenRepository
	lim    limiter.Limiter
	now    func() time.Time
}

// TokenOption customizes TokenServiceImpl.
type TokenOption func(*TokenServiceImpl)

// WithClock overrides the time source used for freshness checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenServiceImpl) { s.now = now }
}

// NewTokenService constructs TokenService. lim may be nil to disable throttling.
func NewTokenService(tokens repository.TokenRepository, lim limiter.Limiter, opts ...TokenOption) *TokenServiceImpl {
	s := &TokenServiceImpl{tokens: tokens, lim: lim, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Validate looks the token up case-insensitively and checks the 24h window.
// A token issued exactly TokenTTL ago is expired.
func (s *TokenServiceImpl) Validate(ctx context.Context, value string) (model.Token, error) {
	tok, err := s.validate(ctx, value)
	metrics.TokenValidations.WithLabelValues(validationResult(err)).Inc()
	return tok, err
}

func (s *TokenServiceImpl) validate(ctx context.Context, value string) (model.Token, error) {
	v := model.NormalizeToken(value)
	if v == "" {
		return model.Token{}, errs.ErrTokenNotFound
	}
	t, err := s.tokens.GetByValue(ctx, v)
	if errors.Is(err, errs.ErrNotFound) {
		return model.Token{}, errs.ErrTokenNotFound
	}
	if err != nil {
		return model.Token{}, storageErr(err)
	}
	if !t.Fresh(s.now()) {
		return model.Token{}, errs.ErrTokenExpired
	}
	return *t, nil
}

// ValidateWithIP applies rate limiting by client ip around Validate.
func (s *TokenServiceImpl) ValidateWithIP(ctx context.Context, value, ip string) (model.Token, error) {
	if s.lim == nil {
		return s.Validate(ctx, value)
	}
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, ipHash)
	if err != nil {
		metrics.LimiterErrors.WithLabelValues("allow").Inc()
		return model.Token{}, storageErr(err)
	}
	if !allowed {
		metrics.TokenValidations.WithLabelValues("rate_limited").Inc()
		return model.Token{}, errs.ErrRateLimited
	}

	tok, err := s.Validate(ctx, value)
	if errors.Is(err, errs.ErrUnauthorized) {
		// A block placed here applies from the next request.
		if _, _, ferr := s.lim.Failure(ctx, ipHash); ferr != nil {
			metrics.LimiterErrors.WithLabelValues("failure").Inc()
			return model.Token{}, storageErr(ferr)
		}
		return model.Token{}, err
	}
	if err != nil {
		return model.Token{}, err
	}

	// Success errors do not fail a valid lookup.
	if serr := s.lim.Success(ctx, ipHash); serr != nil {
		metrics.LimiterErrors.WithLabelValues("success").Inc()
	}
	return tok, nil
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrTokenExpired):
		return "expired"
	case errors.Is(err, errs.ErrTokenNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// storageErr marks a backend failure as ErrStorageUnavailable, keeping the
// cause in the chain. Context cancellation is passed through untouched.
func storageErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", errs.ErrStorageUnavailable, err)
}
