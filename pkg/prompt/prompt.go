// Package prompt abstracts interactive input behind a capability interface
// so the orchestrator core never blocks on a terminal. The terminal
// implementation uses huh forms; tests substitute a scripted source.
package prompt

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
)

// Source supplies operator input.
type Source interface {
	// AskChoice presents options and returns the selected value.
	AskChoice(ctx context.Context, title string, options []string, defaultValue string) (string, error)
	// AskText returns a free-form value.
	AskText(ctx context.Context, title, placeholder string) (string, error)
	// AskSecret is AskText with masked echo.
	AskSecret(ctx context.Context, title string) (string, error)
}

// Terminal prompts on the controlling terminal.
type Terminal struct{}

func (Terminal) AskChoice(ctx context.Context, title string, options []string, defaultValue string) (string, error) {
	selected := defaultValue
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(title).
			Options(huh.NewOptions(options...)...).
			Value(&selected),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("choice prompt: %w", err)
	}
	return selected, nil
}

func (Terminal) AskText(ctx context.Context, title, placeholder string) (string, error) {
	var value string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			Placeholder(placeholder).
			Value(&value),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("text prompt: %w", err)
	}
	return value, nil
}

func (Terminal) AskSecret(ctx context.Context, title string) (string, error) {
	var value string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			EchoMode(huh.EchoModePassword).
			Value(&value),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("secret prompt: %w", err)
	}
	return value, nil
}

// Scripted replays canned answers in order. Used by tests and by
// non-interactive runs that pre-resolve every question.
type Scripted struct {
	Choices []string
	Texts   []string
	Secrets []string
}

func (s *Scripted) AskChoice(_ context.Context, title string, options []string, defaultValue string) (string, error) {
	if len(s.Choices) == 0 {
		return defaultValue, nil
	}
	next := s.Choices[0]
	s.Choices = s.Choices[1:]
	for _, opt := range options {
		if opt == next {
			return next, nil
		}
	}
	return "", fmt.Errorf("scripted choice %q not among options for %q", next, title)
}

func (s *Scripted) AskText(_ context.Context, title, _ string) (string, error) {
	if len(s.Texts) == 0 {
		return "", fmt.Errorf("no scripted text answer for %q", title)
	}
	next := s.Texts[0]
	s.Texts = s.Texts[1:]
	return next, nil
}

func (s *Scripted) AskSecret(_ context.Context, title string) (string, error) {
	if len(s.Secrets) == 0 {
		return "", fmt.Errorf("no scripted secret answer for %q", title)
	}
	next := s.Secrets[0]
	s.Secrets = s.Secrets[1:]
	return next, nil
}
