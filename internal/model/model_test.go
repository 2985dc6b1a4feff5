package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeToken(t *testing.T) {
	require.Equal(t, "AB12CD", NormalizeToken("  ab12Cd\t"))
	require.Equal(t, "", NormalizeToken("   "))
}

func TestToken_Fresh(t *testing.T) {
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := Token{IssuedAt: issued}

	require.True(t, tok.Fresh(issued))
	require.True(t, tok.Fresh(issued.Add(TokenTTL-time.Nanosecond)))
	require.False(t, tok.Fresh(issued.Add(TokenTTL)))
	require.False(t, tok.Fresh(issued.Add(48*time.Hour)))
}

func TestSyncMode(t *testing.T) {
	require.Equal(t, SyncFull, SyncModeFromComplete(true))
	require.Equal(t, SyncPartial, SyncModeFromComplete(false))
	require.True(t, SyncFull.IsComplete())
	require.False(t, SyncPartial.IsComplete())
	require.Equal(t, "full", SyncFull.String())
	require.Equal(t, "partial", SyncPartial.String())
	require.Equal(t, "unknown", SyncMode(5).String())
	require.False(t, SyncMode(5).Valid())
}

func TestScriptSet_Names(t *testing.T) {
	set := ScriptSet{{Name: "b"}, {Name: "a"}}
	require.Equal(t, []string{"b", "a"}, set.Names())
	require.Empty(t, ScriptSet(nil).Names())
}
