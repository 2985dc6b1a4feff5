// Package api holds the JSON shapes shared by the gRPC and HTTP transports and the client.
// Field names follow the addon's camelCase wire format.
package api

import "time"

// Script is the wire form of one script.
type Script struct {
	AccountID int64   `json:"accountId"`
	Name      string  `json:"name"`
	Script    string  `json:"script"`
	Data      *string `json:"data"`
}

// Token is the token status payload. Age is the issue time.
type Token struct {
	AccountID int64     `json:"accountId"`
	Token     string    `json:"token"`
	Age       time.Time `json:"age"`
}

type TokenStatusRequest struct {
	Token string `json:"token"`
}

type GetScriptsRequest struct{}

type GetScriptsResponse struct {
	Scripts []Script `json:"scripts"`
}

// SyncScriptsRequest uploads a script set. A missing isComplete means a full sync.
// AccountID is only read by the HTTP transport; gRPC takes it from the bearer token.
type SyncScriptsRequest struct {
	AccountID  int64    `json:"accountId,omitempty"`
	Scripts    []Script `json:"scripts"`
	IsComplete *bool    `json:"isComplete,omitempty"`
}

// Complete reports the effective isComplete flag.
func (r *SyncScriptsRequest) Complete() bool {
	return r.IsComplete == nil || *r.IsComplete
}

type DeleteScriptsRequest struct {
	AccountID   int64    `json:"accountId,omitempty"`
	ScriptNames []string `json:"scriptNames"`
}

// Empty is the response of calls that return nothing.
type Empty struct{}

// Error is the HTTP error body.
type Error struct {
	Error string `json:"error"`
}
