// Package flow implements the client-side wallet-auth and whitelist-join
// state machines: connect a wallet, prove address ownership with a signed
// challenge, exchange the proof for a session token, and idempotently join
// the whitelist.
package flow

// Stage is a flow controller's externally visible state.
type Stage string

const (
	StageConnect       Stage = "connect"
	StageConnected     Stage = "connected"
	StageSigning       Stage = "signing"
	StageAuthenticated Stage = "authenticated"
	StageWhitelist     Stage = "whitelist"
	StageJoining       Stage = "joining"
	StageSuccess       Stage = "success"
)
