package wizard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/pumpbundle/internal/bundle"
	"github.com/rovshanmuradov/pumpbundle/internal/relay"
	"github.com/rovshanmuradov/pumpbundle/internal/trade"
)

func walkToImage(t *testing.T, m *Manager, user string) {
	t.Helper()
	ctx := context.Background()
	_, err := m.Begin(user)
	require.NoError(t, err)
	for _, text := range []string{"Moon Cat", "MCAT", "a cat on the moon", "https://x.com/mooncat", "none", "skip"} {
		_, err := m.Handle(ctx, user, Input{Text: text})
		require.NoError(t, err)
	}
	st, ok := m.State(user)
	require.True(t, ok)
	require.Equal(t, AwaitingImage, st)
}

func TestWizardCompletesAndLaunches(t *testing.T) {
	var got bundle.Metadata
	launcher := LauncherFunc(func(_ context.Context, userID string, md bundle.Metadata) (LaunchReport, error) {
		assert.Equal(t, "u1", userID)
		got = md
		return LaunchReport{Mint: "Mint111", Result: relay.Result{Mode: relay.ModeBundle, Success: true, BundleID: "b-1"}}, nil
	})
	m := NewManager(launcher, zaptest.NewLogger(t))

	walkToImage(t, m, "u1")
	reply, err := m.Handle(context.Background(), "u1", Input{Image: &bundle.Image{Name: "cat.png", ContentType: "image/png", Data: []byte{0x89, 0x50}}})
	require.NoError(t, err)

	assert.Equal(t, Done, reply.State)
	require.NotNil(t, reply.Report)
	assert.Equal(t, "b-1", reply.Report.Result.BundleID)
	assert.Equal(t, "Moon Cat", got.Name)
	assert.Equal(t, "MCAT", got.Symbol)
	assert.Equal(t, "https://x.com/mooncat", got.Twitter)
	assert.Empty(t, got.Telegram)
	assert.Empty(t, got.Website)
	assert.Equal(t, "cat.png", got.Image.Name)

	_, ok := m.State("u1")
	assert.False(t, ok, "session must be discarded after submission")
}

func TestWizardRejectsInvalidInput(t *testing.T) {
	m := NewManager(LauncherFunc(func(context.Context, string, bundle.Metadata) (LaunchReport, error) {
		t.Fatal("launcher must not run")
		return LaunchReport{}, nil
	}), zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := m.Begin("u1")
	require.NoError(t, err)

	reply, err := m.Handle(ctx, "u1", Input{Text: "   "})
	var verr *trade.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
	assert.Equal(t, AwaitingName, reply.State)
	assert.NotEmpty(t, reply.Prompt)

	for _, text := range []string{"Moon Cat", "MCAT", "desc"} {
		_, err := m.Handle(ctx, "u1", Input{Text: text})
		require.NoError(t, err)
	}
	reply, err = m.Handle(ctx, "u1", Input{Text: "not a link at all"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "twitter", verr.Field)
	assert.Equal(t, AwaitingTwitter, reply.State)

	for _, text := range []string{"none", "none", "none"} {
		_, err := m.Handle(ctx, "u1", Input{Text: text})
		require.NoError(t, err)
	}
	reply, err = m.Handle(ctx, "u1", Input{Text: "here is my picture"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "image", verr.Field)
	assert.Equal(t, AwaitingImage, reply.State)
}

func TestWizardWithoutSession(t *testing.T) {
	m := NewManager(nil, zaptest.NewLogger(t))
	_, err := m.Handle(context.Background(), "ghost", Input{Text: "hi"})
	assert.ErrorIs(t, err, ErrNoSession)
	assert.False(t, m.Cancel("ghost"))
}

func TestWizardCancel(t *testing.T) {
	m := NewManager(nil, zaptest.NewLogger(t))
	_, err := m.Begin("u1")
	require.NoError(t, err)
	_, err = m.Handle(context.Background(), "u1", Input{Text: "Moon Cat"})
	require.NoError(t, err)

	assert.True(t, m.Cancel("u1"))
	_, ok := m.State("u1")
	assert.False(t, ok)
}

func TestWizardBeginRestarts(t *testing.T) {
	m := NewManager(nil, zaptest.NewLogger(t))
	_, err := m.Begin("u1")
	require.NoError(t, err)
	_, err = m.Handle(context.Background(), "u1", Input{Text: "Moon Cat"})
	require.NoError(t, err)

	reply, err := m.Begin("u1")
	require.NoError(t, err)
	assert.Equal(t, AwaitingName, reply.State)
}

func TestWizardRejectsInputWhileSubmitting(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var launches atomic.Int32
	launcher := LauncherFunc(func(context.Context, string, bundle.Metadata) (LaunchReport, error) {
		launches.Add(1)
		close(entered)
		<-release
		return LaunchReport{}, errors.New("relay down")
	})
	m := NewManager(launcher, zaptest.NewLogger(t))
	walkToImage(t, m, "u1")

	done := make(chan error, 1)
	go func() {
		_, err := m.Handle(context.Background(), "u1", Input{Image: &bundle.Image{Name: "a.png", Data: []byte{1}}})
		done <- err
	}()
	<-entered

	_, err := m.Handle(context.Background(), "u1", Input{Text: "again"})
	assert.ErrorIs(t, err, ErrBusy)
	_, err = m.Begin("u1")
	assert.ErrorIs(t, err, ErrBusy)
	assert.False(t, m.Cancel("u1"))

	close(release)
	assert.EqualError(t, <-done, "relay down")
	assert.Equal(t, int32(1), launches.Load())

	_, ok := m.State("u1")
	assert.False(t, ok)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_image", AwaitingImage.String())
	assert.Equal(t, "unknown", State(99).String())
}
