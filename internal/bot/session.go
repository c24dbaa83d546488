package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tickethub/panel/internal/models"
)

// SettingsProvider supplies panel configuration to the session and its
// command handlers.
type SettingsProvider interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// handle wraps the live gateway so readers can snapshot it atomically.
type handle struct {
	gw Gateway
}

// Session is the process-wide controller for the single live gateway
// connection. Lifecycle transitions (Start/Stop/Restart) serialize on
// a mutex; Running, SendMessage and command dispatch read an atomic
// snapshot of the current handle and never block behind a transition's
// network calls once the handle is published.
type Session struct {
	mu      sync.Mutex
	current atomic.Pointer[handle]

	dial     DialFunc
	registry *Registry
	settings SettingsProvider
	logger   *slog.Logger
}

// NewSession creates a stopped session controller.
func NewSession(dial DialFunc, registry *Registry, settings SettingsProvider, logger *slog.Logger) *Session {
	return &Session{
		dial:     dial,
		registry: registry,
		settings: settings,
		logger:   logger,
	}
}

// Start opens the gateway connection and registers the command set.
// Calling Start while already running is a no-op.
func (s *Session) Start(ctx context.Context, token, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx, token, applicationID)
}

func (s *Session) startLocked(ctx context.Context, token, applicationID string) error {
	if s.current.Load() != nil {
		return nil
	}

	gw, err := s.dial(token)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrConnect, err)
	}

	// Install dispatch before the handshake so commands arriving during
	// startup are not dropped.
	gw.OnCommand(s.dispatch)

	if err := gw.Open(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrConnect, err)
	}

	if err := gw.OverwriteCommands(applicationID, s.registry.Specs()); err != nil {
		if closeErr := gw.Close(); closeErr != nil {
			s.logger.Warn("failed to close gateway after registration failure", slog.Any("error", closeErr))
		}
		return fmt.Errorf("%w: %v", models.ErrConnect, err)
	}

	s.current.Store(&handle{gw: gw})
	s.logger.Info("bot session started", slog.String("application_id", applicationID))
	return nil
}

// Stop closes the connection and releases the handle. Calling Stop
// while already stopped is a no-op.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

func (s *Session) stopLocked() {
	h := s.current.Load()
	if h == nil {
		return
	}

	// Clear the handle first so in-flight dispatches and sends observe
	// Stopped instead of racing the closing connection.
	s.current.Store(nil)

	if err := h.gw.Close(); err != nil {
		s.logger.Warn("error closing gateway connection", slog.Any("error", err))
	}
	s.logger.Info("bot session stopped")
}

// Restart stops the current connection, then starts a fresh one. When
// the start fails the session ends Stopped, never half-running.
func (s *Session) Restart(ctx context.Context, token, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	return s.startLocked(ctx, token, applicationID)
}

// Running reports whether a live gateway handle exists.
func (s *Session) Running() bool {
	return s.current.Load() != nil
}

// SendMessage delivers text to a channel, best-effort with no retry.
func (s *Session) SendMessage(ctx context.Context, channelID, text string) error {
	h := s.current.Load()
	if h == nil {
		return models.ErrBotNotRunning
	}
	return h.gw.SendText(ctx, channelID, text)
}

// SendCredentialDM delivers a freshly minted plaintext credential to
// its owner out of band. Failures surface as ErrDeliveryFailed so the
// caller can report delivery separately from issuance.
func (s *Session) SendCredentialDM(ctx context.Context, accountID, plaintext string) error {
	h := s.current.Load()
	if h == nil {
		return fmt.Errorf("%w: %v", models.ErrDeliveryFailed, models.ErrBotNotRunning)
	}

	text := fmt.Sprintf("Your website login password has been generated.\nUser ID: %s\nPassword: %s", accountID, plaintext)
	if err := h.gw.SendDM(ctx, accountID, text); err != nil {
		return fmt.Errorf("%w: %v", models.ErrDeliveryFailed, err)
	}
	return nil
}

// BlacklistEvent is the payload of a blacklist notification.
type BlacklistEvent struct {
	AccountID string
	Reason    string
	Duration  string
}

// NotifyBlacklist posts a blacklist embed to the configured channel.
// This is a fire-and-forget side channel: it silently no-ops when the
// session is stopped, no channel is configured, or delivery fails.
func (s *Session) NotifyBlacklist(ctx context.Context, event BlacklistEvent) {
	h := s.current.Load()
	if h == nil {
		return
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Warn("failed to load settings for blacklist notification", slog.Any("error", err))
		return
	}
	if settings.BlacklistChannelID == "" {
		return
	}

	username := "Unknown User"
	avatarURL := ""
	if user, err := h.gw.User(ctx, event.AccountID); err == nil {
		username = user.Username
		avatarURL = user.AvatarURL
	}

	embed := Embed{
		Title:        "Blacklisted",
		Description:  fmt.Sprintf("%s\n%s\n%s", username, event.Reason, event.Duration),
		Color:        0xff2f2f,
		ThumbnailURL: avatarURL,
		FooterText:   fmt.Sprintf("User ID: %s", event.AccountID),
	}

	if err := h.gw.SendEmbed(ctx, settings.BlacklistChannelID, embed); err != nil {
		s.logger.Warn("blacklist notification delivery failed",
			slog.String("channel_id", settings.BlacklistChannelID), slog.Any("error", err))
	}
}

// dispatchTimeout bounds the work done for one inbound command.
const dispatchTimeout = 10 * time.Second

// dispatch routes one inbound invocation to its registered handler.
// Invoked from the gateway's event callbacks.
func (s *Session) dispatch(inv Invocation) {
	handler, ok := s.registry.Get(inv.Command)
	if !ok {
		s.logger.Warn("inbound command has no registered handler", slog.String("command", inv.Command))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	// A command can arrive after a Stop has begun; fail it gracefully
	// instead of operating on a closing handle.
	if s.current.Load() == nil {
		s.respond(inv, Reply{Content: "The bot is shutting down, try again shortly.", Ephemeral: true})
		return
	}

	reply, err := handler.Handle(ctx, s, inv)
	if err != nil {
		s.logger.Warn("command handler failed",
			slog.String("command", inv.Command),
			slog.String("invoker_id", inv.InvokerID),
			slog.Any("error", err))
	}
	s.respond(inv, reply)
}

func (s *Session) respond(inv Invocation, reply Reply) {
	if inv.Respond == nil || (reply.Content == "" && reply.Embed == nil) {
		return
	}
	if err := inv.Respond(reply); err != nil {
		s.logger.Warn("failed to respond to command",
			slog.String("command", inv.Command), slog.Any("error", err))
	}
}
