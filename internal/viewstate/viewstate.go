// Package viewstate keeps the screen-local state of one browser next to its
// session record: pending notices, the forgot-password step, the seat
// selection, the cached header profile and the OAuth handled marker.
package viewstate

import (
    "context"
    "encoding/json"
    "errors"
    "log"
    "time"

    "github.com/iliyamo/seatify-gateway/internal/auth"
    "github.com/iliyamo/seatify-gateway/internal/notify"
    "github.com/iliyamo/seatify-gateway/internal/seating"
    "github.com/iliyamo/seatify-gateway/internal/session"
)

// HeaderProfile is what the page header shows for a signed-in user.
type HeaderProfile struct {
    FullName  string `json:"fullName"`
    AvatarURL string `json:"avatarUrl"`
}

// State is the persisted view-state record.
type State struct {
    Notices      notify.State      `json:"notices"`
    Reset        auth.ResetFlow    `json:"reset"`
    Selection    seating.Selection `json:"selection"`
    Header       *HeaderProfile    `json:"header,omitempty"`
    OAuthHandled string            `json:"oauthHandled,omitempty"`
}

// Key is the storage key of the view-state of session id sid.
func Key(sid string) string { return "seatify:view:" + sid }

// EpochKey is the storage key of the teardown counter of session id sid.
// Every logout or upstream rejection of the session advances it, and a
// view-state is only saved while the counter still holds the value its
// request started with.
func EpochKey(sid string) string { return "seatify:epoch:" + sid }

// Repo loads and saves State through a session.Persister.
type Repo struct {
    p   session.Persister
    ttl time.Duration
}

// NewRepo returns a Repo whose records live for ttl.
func NewRepo(p session.Persister, ttl time.Duration) *Repo { return &Repo{p: p, ttl: ttl} }

// Load returns the stored state of sid and the browser's current epoch.  A
// missing record yields the zero State; an unreadable one is logged, deleted
// and also yields the zero State.  The state is settled against the epoch
// before it is returned.
func (r *Repo) Load(ctx context.Context, sid string) (State, int64, error) {
    epoch, err := session.ReadCounter(ctx, r.p, EpochKey(sid))
    if err != nil {
        return State{}, 0, err
    }
    raw, err := r.p.Load(ctx, Key(sid))
    if errors.Is(err, session.ErrNotFound) {
        return settle(State{}, epoch), epoch, nil
    }
    if err != nil {
        return State{}, epoch, err
    }
    var st State
    if err := json.Unmarshal(raw, &st); err != nil {
        log.Printf("viewstate: discarding unreadable record for %s: %v", sid, err)
        _ = r.p.Delete(ctx, Key(sid))
        return settle(State{}, epoch), epoch, nil
    }
    return settle(st, epoch), epoch, nil
}

// settle stamps st with epoch.  A record written before the last teardown
// loses its notices and its cached header.
func settle(st State, epoch int64) State {
    e := uint64(epoch)
    if st.Notices.Epoch < e {
        st.Notices = notify.State{}
        st.Header = nil
    }
    st.Notices.Epoch = e
    return st
}

// Advance starts a new epoch for sid and returns it.  Saves fenced on an
// older epoch are rejected from now on.
func (r *Repo) Advance(ctx context.Context, sid string) (int64, error) {
    return r.p.Incr(ctx, EpochKey(sid), r.ttl)
}

// Save stores st for sid if the epoch is still fence.  It reports false,
// and stores nothing, when a teardown has happened since.
func (r *Repo) Save(ctx context.Context, sid string, st State, fence int64) (bool, error) {
    raw, err := json.Marshal(st)
    if err != nil {
        return false, err
    }
    return r.p.SaveFenced(ctx, Key(sid), raw, r.ttl, EpochKey(sid), fence)
}
