package flow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gonadlabs/gooch-island/internal/siwe"
	"golang.org/x/sync/singleflight"
)

// WhitelistFlow layers the join state machine on top of AuthFlow:
//
//	connect -> connected -> signing -> whitelist -> joining -> success
//
// with joining falling back to whitelist on failure, and a reset escape
// hatch ("sign out & change wallet") from any authenticated stage.
type WhitelistFlow struct {
	auth       *AuthFlow
	api        *Client
	cache      *Cache
	collection string

	group singleflight.Group

	mu      sync.Mutex
	stage   Stage
	tier    string
	lastErr string
	gen     int
	cancel  context.CancelFunc
	subs    []func(Stage)
}

func NewWhitelistFlow(auth *AuthFlow, api *Client, cache *Cache, collection string) *WhitelistFlow {
	return &WhitelistFlow{
		auth:       auth,
		api:        api,
		cache:      cache,
		collection: collection,
		stage:      StageConnect,
	}
}

func (f *WhitelistFlow) Subscribe(fn func(Stage)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
}

func (f *WhitelistFlow) Stage() Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stage
}

func (f *WhitelistFlow) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Tier returns the whitelist tier once known, "" before.
func (f *WhitelistFlow) Tier() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tier
}

// Open re-derives the entry stage from the current auth state, every time
// the dialog opens. An already-authenticated wallet skips connect/sign and
// lands directly on success or whitelist after a status check.
func (f *WhitelistFlow) Open(ctx context.Context) Stage {
	ctx, gen := f.begin(ctx)

	session := f.auth.Session()
	if session == nil {
		switch f.auth.Stage() {
		case StageConnected, StageSigning:
			f.setStage(gen, StageConnected)
		default:
			f.setStage(gen, StageConnect)
		}
		return f.Stage()
	}

	whitelisted, tier := f.checkStatus(ctx, session.Address)
	f.mu.Lock()
	if f.gen == gen {
		f.tier = tier
	}
	f.mu.Unlock()
	if whitelisted {
		f.setStage(gen, StageSuccess)
	} else {
		f.setStage(gen, StageWhitelist)
	}
	return f.Stage()
}

// Join adds the authenticated address to the whitelist with the bearer
// token: whitelist -> joining -> success, or back to whitelist with the
// error retained. Safe to call when already whitelisted; the server upsert
// is idempotent.
func (f *WhitelistFlow) Join(ctx context.Context) error {
	session := f.auth.Session()
	if session == nil {
		f.mu.Lock()
		f.lastErr = "Please authenticate first"
		f.mu.Unlock()
		return errors.New("not authenticated")
	}

	ctx, gen := f.begin(ctx)
	f.setStage(gen, StageJoining)

	result, err := f.api.Join(ctx, session.Token, session.Address)
	if err != nil {
		msg := "Something went wrong. Please try again."
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
		}
		f.fail(gen, StageWhitelist, msg)
		return err
	}

	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		return context.Canceled
	}
	f.tier = result.Data.Tier
	f.lastErr = ""
	f.mu.Unlock()

	f.cache.SaveWhitelist(session.Address, result.Data.Tier)
	f.setStage(gen, StageSuccess)
	return nil
}

// JoinLegacy is the direct signature path: the wallet signs the whitelist
// confirmation message and the raw triple is posted, no session token
// involved: connected -> signing -> joining -> success.
func (f *WhitelistFlow) JoinLegacy(ctx context.Context, wallet Wallet, address string) error {
	ctx, gen := f.begin(ctx)
	f.setStage(gen, StageSigning)

	message := siwe.WhitelistMessage(address, time.Now())
	signature, err := wallet.SignMessage(ctx, message)
	if err != nil || signature == "" {
		f.fail(gen, StageConnected, "Signature failed or was cancelled")
		if err == nil {
			err = ErrSignatureRejected
		}
		return err
	}

	f.setStage(gen, StageJoining)
	result, err := f.api.JoinWithSignature(ctx, address, message, signature)
	if err != nil {
		msg := "Something went wrong. Please try again."
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
		}
		f.fail(gen, StageWhitelist, msg)
		return err
	}

	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		return context.Canceled
	}
	f.tier = result.Data.Tier
	f.lastErr = ""
	f.mu.Unlock()

	f.cache.SaveWhitelist(address, result.Data.Tier)
	f.setStage(gen, StageSuccess)
	return nil
}

// Reset is the "sign out & change wallet" escape hatch: drop the session
// and start over at connect.
func (f *WhitelistFlow) Reset() {
	f.auth.Logout()
	f.cache.ClearWhitelist()

	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.gen++
	gen := f.gen
	f.tier = ""
	f.lastErr = ""
	f.mu.Unlock()
	f.setStage(gen, StageConnect)
}

// checkStatus asks the server whether the address is whitelisted,
// deduplicating concurrent checks. The server answer always overwrites the
// local mirror; the mirror is consulted only when the call itself fails.
func (f *WhitelistFlow) checkStatus(ctx context.Context, address string) (bool, string) {
	v, err, _ := f.group.Do(address, func() (interface{}, error) {
		return f.api.Status(ctx, address, f.collection)
	})
	if err != nil {
		if blob, ok := f.cache.LoadWhitelist(address); ok && blob.Authenticated {
			return true, blob.Tier
		}
		return false, ""
	}

	status := v.(*StatusResult)
	if status.IsWhitelisted {
		tier := ""
		if status.Data != nil {
			tier = status.Data.Tier
		}
		f.cache.SaveWhitelist(address, tier)
		return true, tier
	}
	return false, ""
}

func (f *WhitelistFlow) begin(ctx context.Context) (context.Context, int) {
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

func (f *WhitelistFlow) setStage(gen int, stage Stage) {
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

func (f *WhitelistFlow) fail(gen int, stage Stage, msg string) {
	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		return
	}
	f.lastErr = msg
	f.mu.Unlock()
	f.setStage(gen, stage)
}
