// internal/wizard/wizard.go
package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/bundle"
	"github.com/rovshanmuradov/pumpbundle/internal/relay"
	"github.com/rovshanmuradov/pumpbundle/internal/trade"
)

// State is a step of the token-creation conversation.
type State int

const (
	AwaitingName State = iota
	AwaitingSymbol
	AwaitingDescription
	AwaitingTwitter
	AwaitingTelegram
	AwaitingWebsite
	AwaitingImage
	Submitting
	Done
)

var stateNames = map[State]string{
	AwaitingName:        "awaiting_name",
	AwaitingSymbol:      "awaiting_symbol",
	AwaitingDescription: "awaiting_description",
	AwaitingTwitter:     "awaiting_twitter",
	AwaitingTelegram:    "awaiting_telegram",
	AwaitingWebsite:     "awaiting_website",
	AwaitingImage:       "awaiting_image",
	Submitting:          "submitting",
	Done:                "done",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

var (
	ErrNoSession = errors.New("no token creation in progress")
	ErrBusy      = errors.New("token creation is already being submitted")
)

// Input is one user message: text, or an uploaded image.
type Input struct {
	Text  string
	Image *bundle.Image
}

// LaunchReport is what the launcher returns once the bundle was submitted.
type LaunchReport struct {
	Mint   string
	Result relay.Result
}

// Launcher submits the finished token for the user.
type Launcher interface {
	Launch(ctx context.Context, userID string, md bundle.Metadata) (LaunchReport, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, userID string, md bundle.Metadata) (LaunchReport, error)

func (f LauncherFunc) Launch(ctx context.Context, userID string, md bundle.Metadata) (LaunchReport, error) {
	return f(ctx, userID, md)
}

// Reply tells the caller what to show the user next.
type Reply struct {
	State  State
	Prompt string
	Report *LaunchReport
}

type step struct {
	prompt string
	apply  func(md *bundle.Metadata, in Input) error
	next   State
}

var transitions = map[State]step{
	AwaitingName: {
		prompt: "What is the name of your token?",
		apply:  func(md *bundle.Metadata, in Input) (err error) { md.Name, err = required("name", in.Text); return },
		next:   AwaitingSymbol,
	},
	AwaitingSymbol: {
		prompt: "What is the token symbol?",
		apply:  func(md *bundle.Metadata, in Input) (err error) { md.Symbol, err = required("symbol", in.Text); return },
		next:   AwaitingDescription,
	},
	AwaitingDescription: {
		prompt: "Describe your token.",
		apply: func(md *bundle.Metadata, in Input) (err error) {
			md.Description, err = required("description", in.Text)
			return
		},
		next: AwaitingTwitter,
	},
	AwaitingTwitter: {
		prompt: "Twitter link? Send 'none' to skip.",
		apply:  func(md *bundle.Metadata, in Input) (err error) { md.Twitter, err = optionalURL("twitter", in.Text); return },
		next:   AwaitingTelegram,
	},
	AwaitingTelegram: {
		prompt: "Telegram link? Send 'none' to skip.",
		apply:  func(md *bundle.Metadata, in Input) (err error) { md.Telegram, err = optionalURL("telegram", in.Text); return },
		next:   AwaitingWebsite,
	},
	AwaitingWebsite: {
		prompt: "Website? Send 'none' to skip.",
		apply:  func(md *bundle.Metadata, in Input) (err error) { md.Website, err = optionalURL("website", in.Text); return },
		next:   AwaitingImage,
	},
	AwaitingImage: {
		prompt: "Send the token image.",
		apply: func(md *bundle.Metadata, in Input) error {
			if in.Image == nil || len(in.Image.Data) == 0 {
				return &trade.ValidationError{Field: "image", Reason: "an image file is required"}
			}
			md.Image = *in.Image
			return nil
		},
		next: Submitting,
	},
}

func required(field, text string) (string, error) {
	v := strings.TrimSpace(text)
	if v == "" {
		return "", &trade.ValidationError{Field: field, Reason: "required"}
	}
	return v, nil
}

func optionalURL(field, text string) (string, error) {
	v := strings.TrimSpace(text)
	switch strings.ToLower(v) {
	case "", "none", "skip", "-":
		return "", nil
	}
	if !govalidator.IsURL(v) {
		return "", &trade.ValidationError{Field: field, Reason: "not a valid link"}
	}
	return v, nil
}

type session struct {
	state     State
	md        bundle.Metadata
	startedAt time.Time
}

// Manager holds one creation session per user.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	launcher Launcher
	logger   *zap.Logger
}

// NewManager creates a wizard manager that hands finished tokens to launcher.
func NewManager(launcher Launcher, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		launcher: launcher,
		logger:   logger.Named("wizard"),
	}
}

// Begin starts a new session for the user, discarding an unfinished one.
func (m *Manager) Begin(userID string) (Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok && s.state == Submitting {
		return Reply{State: Submitting}, ErrBusy
	}
	m.sessions[userID] = &session{state: AwaitingName, startedAt: time.Now()}
	m.logger.Debug("Session started", zap.String("user_id", userID))
	return Reply{State: AwaitingName, Prompt: transitions[AwaitingName].prompt}, nil
}

// Handle applies one input. Invalid input re-prompts without moving the session.
// The final step submits through the launcher and discards the session.
func (m *Manager) Handle(ctx context.Context, userID string, in Input) (Reply, error) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if !ok {
		m.mu.Unlock()
		return Reply{}, ErrNoSession
	}
	if s.state == Submitting {
		m.mu.Unlock()
		return Reply{State: Submitting}, ErrBusy
	}

	st := transitions[s.state]
	if err := st.apply(&s.md, in); err != nil {
		state := s.state
		m.mu.Unlock()
		return Reply{State: state, Prompt: st.prompt}, err
	}
	s.state = st.next
	if s.state != Submitting {
		next := s.state
		m.mu.Unlock()
		return Reply{State: next, Prompt: transitions[next].prompt}, nil
	}
	md := s.md
	m.mu.Unlock()

	m.logger.Info("Submitting token", zap.String("user_id", userID), zap.String("symbol", md.Symbol))
	report, err := m.launcher.Launch(ctx, userID, md)

	m.mu.Lock()
	if m.sessions[userID] == s {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("Token launch failed", zap.String("user_id", userID), zap.Error(err))
		return Reply{State: Done}, err
	}
	return Reply{State: Done, Report: &report}, nil
}

// Cancel discards the user's session. A session being submitted cannot be cancelled.
func (m *Manager) Cancel(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok || s.state == Submitting {
		return false
	}
	delete(m.sessions, userID)
	return true
}

// State returns the user's current step.
func (m *Manager) State(userID string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return 0, false
	}
	return s.state, true
}
