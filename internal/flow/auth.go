package flow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gonadlabs/gooch-island/internal/siwe"
)

// DefaultConnectTimeout is the watchdog on the external wallet widget: if it
// closes without ever reporting a connection, the flow falls back to the
// connect stage instead of hanging.
const DefaultConnectTimeout = 10 * time.Second

// AuthFlow is the wallet sign-in state machine:
//
//	connect -> connected -> signing -> authenticated
//
// with signing failures returning to connected. Each operation carries a
// cancellable context and a generation number; starting a new operation
// cancels the previous one, and a superseded operation's result is discarded
// so a slow late response can never flip the flow into the wrong state.
type AuthFlow struct {
	wallet Wallet
	api    *Client
	cache  *Cache

	ConnectTimeout time.Duration

	mu      sync.Mutex
	stage   Stage
	address string
	session *Session
	lastErr string
	gen     int
	cancel  context.CancelFunc
	subs    []func(Stage)
}

// NewAuthFlow builds the flow, restoring a still-valid cached session so a
// reloaded client skips straight to authenticated.
func NewAuthFlow(wallet Wallet, api *Client, cache *Cache) *AuthFlow {
	f := &AuthFlow{
		wallet:         wallet,
		api:            api,
		cache:          cache,
		stage:          StageConnect,
		ConnectTimeout: DefaultConnectTimeout,
	}
	if blob, ok := cache.LoadAuth(); ok {
		f.session = &Session{
			Address: blob.User.Address,
			Token:   blob.JWT,
			User:    blob.User,
		}
		f.address = blob.User.Address
		f.stage = StageAuthenticated
	}
	return f
}

// Subscribe registers an observer called on every stage transition. The UI
// layer watches the flow instead of reading ambient global state.
func (f *AuthFlow) Subscribe(fn func(Stage)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
}

func (f *AuthFlow) Stage() Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stage
}

// Session returns the credential object held after a successful sign-in,
// or nil.
func (f *AuthFlow) Session() *Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

// Err returns the message the dialog should surface, "" when none.
func (f *AuthFlow) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Cancel aborts the in-flight operation, if any.
func (f *AuthFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.gen++
}

// Connect links a wallet: connect -> connected. The widget gets the
// watchdog timeout to resolve; on timeout or error the flow stays at
// connect with the error retained.
func (f *AuthFlow) Connect(ctx context.Context) error {
	ctx, gen := f.begin(ctx)

	ctx, cancel := context.WithTimeout(ctx, f.ConnectTimeout)
	defer cancel()

	address, err := f.wallet.Connect(ctx)
	if err != nil {
		f.fail(gen, StageConnect, "Wallet connection failed or timed out")
		return err
	}

	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		return context.Canceled
	}
	f.address = address
	f.lastErr = ""
	f.mu.Unlock()
	f.setStage(gen, StageConnected)
	return nil
}

// Authenticate runs connected -> signing -> authenticated: build the
// challenge, request a signature, post the triple, store the session.
func (f *AuthFlow) Authenticate(ctx context.Context) error {
	f.mu.Lock()
	if f.stage != StageConnected || f.address == "" {
		f.mu.Unlock()
		return errors.New("no wallet connected")
	}
	address := f.address
	f.mu.Unlock()

	ctx, gen := f.begin(ctx)
	f.setStage(gen, StageSigning)

	message := siwe.AuthMessage(address, time.Now())
	signature, err := f.wallet.SignMessage(ctx, message)
	if err != nil || signature == "" {
		f.fail(gen, StageConnected, "Signature failed or was cancelled")
		if err == nil {
			err = ErrSignatureRejected
		}
		return err
	}

	result, err := f.api.Authenticate(ctx, address, message, signature)
	if err != nil {
		msg := "Something went wrong. Please try again."
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
		}
		f.fail(gen, StageConnected, msg)
		return err
	}

	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		return context.Canceled
	}
	f.session = &Session{
		Address: result.User.Address,
		Token:   result.JWT,
		User:    result.User,
	}
	f.lastErr = ""
	f.mu.Unlock()

	f.cache.SaveAuth(*f.Session())
	f.setStage(gen, StageAuthenticated)
	return nil
}

// Logout drops the session and cache and returns to connect. Abandoning the
// flow at any earlier stage needs no cleanup: the server only acts on a
// fully formed verified request.
func (f *AuthFlow) Logout() {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.gen++
	gen := f.gen
	f.session = nil
	f.address = ""
	f.lastErr = ""
	f.mu.Unlock()

	f.cache.ClearAuth()
	f.setStage(gen, StageConnect)
}

// begin supersedes any in-flight operation and opens a new one.
func (f *AuthFlow) begin(ctx context.Context) (context.Context, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	return ctx, f.gen
}

// setStage applies a transition if the operation is still current and
// notifies observers outside the lock.
func (f *AuthFlow) setStage(gen int, stage Stage) {
	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		return
	}
	f.stage = stage
	subs := make([]func(Stage), len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()

	for _, fn := range subs {
		fn(stage)
	}
}

func (f *AuthFlow) fail(gen int, stage Stage, msg string) {
	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		return
	}
	f.lastErr = msg
	f.mu.Unlock()
	f.setStage(gen, stage)
}
