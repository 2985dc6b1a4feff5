package convert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/botscripts/internal/api"
	"github.com/and161185/botscripts/internal/model"
)

func TestScripts_FieldMapping(t *testing.T) {
	t.Parallel()
	data := "state"
	set := model.ScriptSet{{AccountID: 3, Name: "ai.combat", Body: "return 1", Data: &data}}

	out := ToAPIScripts(set)
	require.Equal(t, []api.Script{{AccountID: 3, Name: "ai.combat", Script: "return 1", Data: &data}}, out)
	require.Equal(t, set, FromAPIScripts(out))
}

func TestToAPIScripts_EmptyIsNotNil(t *testing.T) {
	t.Parallel()
	require.NotNil(t, ToAPIScripts(nil))
	require.Empty(t, ToAPIScripts(nil))
	require.NotNil(t, FromAPIScripts(nil))
}

func TestToken(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	tok := model.Token{AccountID: 9, Value: "XYZ", IssuedAt: now}
	require.Equal(t, api.Token{AccountID: 9, Token: "XYZ", Age: now}, ToAPIToken(tok))
	require.Equal(t, tok, FromAPIToken(ToAPIToken(tok)))
}

func TestSyncRequest(t *testing.T) {
	t.Parallel()
	full := SyncRequest(nil, model.SyncFull)
	require.True(t, full.Complete())
	require.NotNil(t, full.Scripts)

	part := SyncRequest(model.ScriptSet{{Name: "a"}}, model.SyncPartial)
	require.False(t, part.Complete())
	require.Len(t, part.Scripts, 1)
}
