package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/arbor/pkg/form"
)

// ErrNoSession reports a request without a session identity. Continuing
// without one would corrupt another session's answers, so callers treat
// this as fatal for the request.
var ErrNoSession = errors.New("missing session identity")

// SessionKey identifies one form-filling session. FormStatus separates
// draft previews from live forms so their answers never mix.
type SessionKey struct {
	SessionID  string
	FormStatus string
	FormSlug   string
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.SessionID, k.FormStatus, k.FormSlug)
}

// ConfirmationState marks that a session completed a form submission.
// The status page refuses to render without it.
type ConfirmationState struct {
	Confirmed bool `json:"confirmed"`
}

// SessionStore persists per-session answers. Entries are TTL-bounded;
// the engine never caches state across requests.
type SessionStore interface {
	// GetState returns the stored answers, or an empty state when the
	// session has none.
	GetState(ctx context.Context, key SessionKey) (form.State, error)

	// SetState merges nothing: it stores the given state wholesale and
	// returns what was stored.
	SetState(ctx context.Context, key SessionKey, state form.State) (form.State, error)

	// ClearState removes the session's answers, leaving any confirmation
	// flag intact.
	ClearState(ctx context.Context, key SessionKey) error

	// GetConfirmationState reports whether the session already submitted.
	GetConfirmationState(ctx context.Context, key SessionKey) (ConfirmationState, error)

	// SetConfirmationState records a completed submission.
	SetConfirmationState(ctx context.Context, key SessionKey, confirmation ConfirmationState) error
}
