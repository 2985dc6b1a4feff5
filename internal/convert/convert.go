// Package convert maps domain models to their wire projections and back.
package convert

import (
	"github.com/and161185/botscripts/internal/api"
	"github.com/and161185/botscripts/internal/model"
)

// ToAPIScript converts a domain script to its wire form.
func ToAPIScript(s model.Script) api.Script {
	return api.Script{
		AccountID: s.AccountID,
		Name:      s.Name,
		Script:    s.Body,
		Data:      s.Data,
	}
}

// ToAPIScripts never returns nil so an empty set encodes as [].
func ToAPIScripts(set model.ScriptSet) []api.Script {
	out := make([]api.Script, 0, len(set))
	for _, s := range set {
		out = append(out, ToAPIScript(s))
	}
	return out
}

// FromAPIScript converts a wire script. The account id is copied as sent;
// the service overwrites it with the authenticated account.
func FromAPIScript(s api.Script) model.Script {
	return model.Script{
		AccountID: s.AccountID,
		Name:      s.Name,
		Body:      s.Script,
		Data:      s.Data,
	}
}

// FromAPIScripts converts a slice of wire scripts to a ScriptSet.
func FromAPIScripts(in []api.Script) model.ScriptSet {
	out := make(model.ScriptSet, 0, len(in))
	for _, s := range in {
		out = append(out, FromAPIScript(s))
	}
	return out
}

// ToAPIToken converts a validated token to the status payload.
func ToAPIToken(t model.Token) api.Token {
	return api.Token{AccountID: t.AccountID, Token: t.Value, Age: t.IssuedAt}
}

// FromAPIToken converts a status payload back to a domain token.
func FromAPIToken(t api.Token) model.Token {
	return model.Token{AccountID: t.AccountID, Value: t.Token, IssuedAt: t.Age}
}

// SyncRequest builds the wire request for a sync of set in mode.
func SyncRequest(set model.ScriptSet, mode model.SyncMode) *api.SyncScriptsRequest {
	complete := mode.IsComplete()
	return &api.SyncScriptsRequest{Scripts: ToAPIScripts(set), IsComplete: &complete}
}
