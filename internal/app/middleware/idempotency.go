package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"bookly/internal/app/commands"
)

// IdempotentCommand is a command that can be replayed by key. ResultPrototype returns a fresh
// pointer of the handler's result type, used to decode a stored result.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any
}

// IdempotencyRecord is the stored outcome of a successful command.
type IdempotencyRecord struct {
	Key     string
	Command string
	// Fingerprint identifies the request parameters; empty when the command has none.
	Fingerprint string
	Payload     []byte
	OccurredAt  time.Time
}

// ErrIdempotencyKeyReused is returned when a key comes back with a different request.
var ErrIdempotencyKeyReused = errors.New("idempotency: key was already used for a different request")

// Fingerprinted commands describe the parameters a replay must match.
type Fingerprinted interface {
	RequestFingerprint() string
}

// Fingerprint hashes request parameters into a stable token.
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency replays the stored result of a command whose key was already handled.
// Requests sharing a key are serialized within this process so a retry that races the
// original waits for it and then replays.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	gates := &keyGates{running: make(map[string]chan struct{})}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok {
				return nextFn(ctx, cmd)
			}
			key := idCmd.IdempotencyKey()
			if key == "" {
				return nextFn(ctx, cmd)
			}
			release, err := gates.enter(ctx, key)
			if err != nil {
				return nil, err
			}
			defer release()

			var fingerprint string
			if f, ok := cmd.(Fingerprinted); ok {
				fingerprint = f.RequestFingerprint()
			}
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				if (rec.Command != "" && rec.Command != cmd.Key()) || (rec.Fingerprint != "" && rec.Fingerprint != fingerprint) {
					return nil, ErrIdempotencyKeyReused
				}
				return replay(idCmd, codec, rec)
			}
			result, err := nextFn(ctx, cmd)
			if err != nil {
				// Failures are not recorded so the client can retry with the same key.
				return nil, err
			}
			record := IdempotencyRecord{Key: key, Command: cmd.Key(), Fingerprint: fingerprint, OccurredAt: time.Now().UTC()}
			if result != nil {
				if record.Payload, err = codec.Encode(result); err != nil {
					return nil, err
				}
			}
			if err := store.Save(ctx, record); err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

func replay(cmd IdempotentCommand, codec ResultCodec, rec IdempotencyRecord) (any, error) {
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	return proto, nil
}

// keyGates admits one request per key at a time.
type keyGates struct {
	mu      sync.Mutex
	running map[string]chan struct{}
}

func (g *keyGates) enter(ctx context.Context, key string) (func(), error) {
	for {
		g.mu.Lock()
		done, busy := g.running[key]
		if !busy {
			done = make(chan struct{})
			g.running[key] = done
			g.mu.Unlock()
			return func() {
				g.mu.Lock()
				delete(g.running, key)
				g.mu.Unlock()
				close(done)
			}, nil
		}
		g.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
