// Package model defines domain entities used by services and repositories.
package model

import (
	"strings"
	"time"
)

// TokenTTL is the fixed freshness window of an issued token.
const TokenTTL = 24 * time.Hour

// Token is the bearer credential issued to an account by the game server.
type Token struct {
	AccountID int64     // PK, one token per account
	Value     string    // upper-case opaque value
	IssuedAt  time.Time // "age" column
}

// NormalizeToken returns the canonical (trimmed, upper-case) form used for storage and lookup.
func NormalizeToken(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

// Fresh reports whether the token is still inside its freshness window at now.
func (t Token) Fresh(now time.Time) bool {
	return now.Sub(t.IssuedAt) < TokenTTL
}

// Script is a single named script owned by an account. (AccountID, Name) is its identity.
type Script struct {
	AccountID int64
	Name      string
	Body      string  // "script" column
	Data      *string // opaque state written by the game server; nil means NULL
}

// ScriptSet is every script of one account, the unit of reconciliation.
type ScriptSet []Script

// Names returns script names in set order.
func (s ScriptSet) Names() []string {
	out := make([]string, 0, len(s))
	for _, sc := range s {
		out = append(out, sc.Name)
	}
	return out
}

// SyncMode selects how an incoming set is reconciled with the stored one.
type SyncMode int

const (
	// SyncFull makes the stored set exactly equal to the incoming set.
	SyncFull SyncMode = iota
	// SyncPartial upserts incoming scripts and leaves the rest untouched.
	SyncPartial
)

// SyncModeFromComplete maps the wire "isComplete" flag to a mode.
func SyncModeFromComplete(isComplete bool) SyncMode {
	if isComplete {
		return SyncFull
	}
	return SyncPartial
}

// IsComplete is the inverse of SyncModeFromComplete.
func (m SyncMode) IsComplete() bool { return m == SyncFull }

func (m SyncMode) String() string {
	switch m {
	case SyncFull:
		return "full"
	case SyncPartial:
		return "partial"
	default:
		return "unknown"
	}
}

// Valid reports whether m is one of the declared modes.
func (m SyncMode) Valid() bool { return m == SyncFull || m == SyncPartial }
