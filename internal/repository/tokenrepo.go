// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/botscripts/internal/model"
)

// TokenRepository provides read-only access to issued account tokens.
type TokenRepository interface {
	// GetByValue loads the token whose canonical value equals value.
	// Returns errs.ErrNotFound when there is no such token.
	GetByValue(ctx context.Context, value string) (*model.Token, error)
}
