package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrSpeechUnavailable is returned by NewSpeaker when no speech command is installed.
var ErrSpeechUnavailable = errors.New("no text-to-speech command available")

// DefaultSpeechCommands are tried in order when no command is configured.
var DefaultSpeechCommands = []string{"say", "espeak", "spd-say"}

// SpeakerConfig holds configuration for the text-to-speech notifier.
type SpeakerConfig struct {
	// Command is the speech program. Empty picks the first of DefaultSpeechCommands found.
	Command string

	// LookPath resolves commands (default: exec.LookPath).
	LookPath func(file string) (string, error)

	// Run executes the command and waits for it (default: exec.CommandContext(...).Run).
	Run func(ctx context.Context, name string, args ...string) error
}

// Speaker reads messages aloud with a local speech program.
type Speaker struct {
	path string
	run  func(ctx context.Context, name string, args ...string) error
}

// NewSpeaker resolves the speech command. Callers treat ErrSpeechUnavailable as
// "no speech", not as a failure.
func NewSpeaker(cfg SpeakerConfig) (*Speaker, error) {
	lookPath := cfg.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	run := cfg.Run
	if run == nil {
		run = runCommand
	}

	candidates := DefaultSpeechCommands
	if cfg.Command != "" {
		candidates = []string{cfg.Command}
	}

	for _, name := range candidates {
		path, err := lookPath(name)
		if err == nil {
			return &Speaker{path: path, run: run}, nil
		}
	}
	return nil, ErrSpeechUnavailable
}

// Name returns the notifier name.
func (s *Speaker) Name() string {
	return "speech"
}

// Command returns the resolved speech program.
func (s *Speaker) Command() string {
	return s.path
}

// Notify speaks msg.Speech, or msg.Text when no spoken form is set.
// It blocks until the program finishes.
func (s *Speaker) Notify(ctx context.Context, msg Message) error {
	text := msg.Speech
	if text == "" {
		text = msg.Text
	}
	if text == "" {
		return nil
	}

	if err := s.run(ctx, s.path, text); err != nil {
		return fmt.Errorf("run %s: %w", s.path, err)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
