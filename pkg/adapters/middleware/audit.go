package middleware

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/ports"
)

type auditMiddleware struct {
	next     ports.SessionStore
	logger   *slog.Logger
	patterns []*regexp.Regexp
}

// NewAudit creates a middleware that logs store writes at debug level.
// Values of keys matching the patterns are masked before logging, so the
// answers themselves never reach the log stream. The persisted state is
// untouched; masking stored answers would break the walk on the next
// request.
func NewAudit(logger *slog.Logger, patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &auditMiddleware{next: next, logger: logger, patterns: patterns}
	}
}

func (m *auditMiddleware) SetState(ctx context.Context, key ports.SessionKey, state form.State) (form.State, error) {
	stored, err := m.next.SetState(ctx, key, state)
	if err != nil {
		return nil, err
	}
	if m.logger.Enabled(ctx, slog.LevelDebug) {
		snapshot := deepCopyMap(state)
		maskMap(snapshot, m.patterns)
		m.logger.Debug("session state saved", "session", key.String(), "state", snapshot)
	}
	return stored, nil
}

func (m *auditMiddleware) GetState(ctx context.Context, key ports.SessionKey) (form.State, error) {
	return m.next.GetState(ctx, key)
}

func (m *auditMiddleware) ClearState(ctx context.Context, key ports.SessionKey) error {
	m.logger.Debug("session state cleared", "session", key.String())
	return m.next.ClearState(ctx, key)
}

func (m *auditMiddleware) GetConfirmationState(ctx context.Context, key ports.SessionKey) (ports.ConfirmationState, error) {
	return m.next.GetConfirmationState(ctx, key)
}

func (m *auditMiddleware) SetConfirmationState(ctx context.Context, key ports.SessionKey, confirmation ports.ConfirmationState) error {
	m.logger.Debug("session confirmed", "session", key.String())
	return m.next.SetConfirmationState(ctx, key, confirmation)
}

// Helpers

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		// Handle nested maps
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v // shallow copy of value
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		// Check key against patterns
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				break
			}
		}

		// Recurse if map
		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
