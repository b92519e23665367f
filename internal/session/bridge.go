package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/seatify-gateway/internal/model"
	"github.com/iliyamo/seatify-gateway/internal/utils"
)

// Bridge mirrors a Store to a persisted record under one key.  The record
// is a copy, never the authority: the Store is.
type Bridge struct {
	p   Persister
	key string
	ttl time.Duration
	now func() time.Time
}

// NewBridge binds a persister key.  ttl bounds how long a record is kept;
// tokens that carry a JWT expiry shorten it further.
func NewBridge(p Persister, key string, ttl time.Duration) *Bridge {
	return &Bridge{p: p, key: key, ttl: ttl, now: time.Now}
}

// Key returns the persister key this bridge writes to.
func (b *Bridge) Key() string { return b.key }

// Restore adopts the persisted record into st.  A record without a token is
// ignored.  Missing roles become an empty list, a missing email the empty
// string, a missing timestamp the current time.  A malformed record is
// deleted and st is left anonymous; that is not reported as an error.
func (b *Bridge) Restore(ctx context.Context, st *Store) error {
	raw, err := b.p.Load(ctx, b.key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var rec struct {
		Token     string          `json:"token"`
		Roles     json.RawMessage `json:"roles"`
		Email     json.RawMessage `json:"email"`
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		log.Printf("session: discarding malformed record %s: %v", b.key, err)
		if derr := b.p.Delete(ctx, b.key); derr != nil {
			return derr
		}
		return nil
	}
	if rec.Token == "" {
		return nil
	}

	st.Set(model.Session{
		Token:     rec.Token,
		Roles:     rolesOf(rec.Roles),
		Email:     stringOf(rec.Email),
		Timestamp: timestampOf(rec.Timestamp, b.now()),
	})
	return nil
}

// Write persists s.  An anonymous session removes the record instead.
func (b *Bridge) Write(ctx context.Context, s model.Session) error {
	if !s.Authenticated() {
		return b.Remove(ctx)
	}
	ttl := utils.TTLFor(s.Token, b.ttl, b.now())
	if ttl <= 0 && b.ttl > 0 {
		// the token is already past its expiry; keep nothing
		return b.Remove(ctx)
	}
	data, err := json.Marshal(model.RecordOf(s))
	if err != nil {
		return err
	}
	return b.p.Save(ctx, b.key, data, ttl)
}

// Remove deletes the persisted record.
func (b *Bridge) Remove(ctx context.Context) error { return b.p.Delete(ctx, b.key) }

func rolesOf(raw json.RawMessage) []string {
	var roles []string
	if len(raw) == 0 || json.Unmarshal(raw, &roles) != nil {
		return []string{}
	}
	if roles == nil {
		return []string{}
	}
	return roles
}

func stringOf(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func timestampOf(raw json.RawMessage, now time.Time) time.Time {
	var ms int64
	if len(raw) == 0 || json.Unmarshal(raw, &ms) != nil || ms <= 0 {
		return now
	}
	return time.UnixMilli(ms)
}
