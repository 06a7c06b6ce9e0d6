package arbor_test

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/ports"
)

const licenceDefinition = `{
	"name": "Apply for a licence",
	"pages": [
		{
			"path": "/full-name",
			"title": "What is your name?",
			"components": [
				{"type": "TextField", "name": "fullName", "title": "Full name"}
			],
			"next": [{"path": "/summary"}]
		},
		{
			"path": "/summary",
			"title": "Check your answers",
			"controller": "SummaryPageController",
			"components": []
		}
	],
	"conditions": [],
	"lists": []
}`

func TestNewRejectsBadDefinition(t *testing.T) {
	_, err := arbor.New([]byte(`{"pages": []}`))
	assert.Error(t, err)
}

func TestRunnerSharesStoreAcrossRequests(t *testing.T) {
	store := memory.New()
	runner, err := arbor.New([]byte(licenceDefinition),
		arbor.WithStore(store),
		arbor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))),
	)
	require.NoError(t, err)

	ctx := context.Background()
	resp, err := runner.Post(ctx, "abc", "/full-name", map[string]any{"fullName": "Ada Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, "/summary", resp.Redirect)

	key := ports.SessionKey{SessionID: "abc", FormStatus: "live", FormSlug: "apply-for-a-licence"}
	state, err := store.GetState(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", state["fullName"])
}

func TestRunnerRequiresSession(t *testing.T) {
	runner, err := arbor.New([]byte(licenceDefinition))
	require.NoError(t, err)

	_, err = runner.Get(context.Background(), "", "/full-name")
	assert.ErrorIs(t, err, ports.ErrNoSession)
}

func TestRunnerUnknownPage(t *testing.T) {
	runner, err := arbor.New([]byte(licenceDefinition))
	require.NoError(t, err)

	_, err = runner.Get(context.Background(), "abc", "/missing")
	assert.Error(t, err)
}
