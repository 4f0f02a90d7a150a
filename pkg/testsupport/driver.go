package testsupport

import (
	"context"
	"errors"

	"github.com/goliatone/go-formstate/pkg/prompt"
)

// ScriptedDriver is a prompt.Driver that replays canned answers in order.
// Each prompt kind has its own script; running out of answers is an error so
// a session that loops unexpectedly fails instead of hanging.
type ScriptedDriver struct {
	Inputs    []string
	Passwords []string
	TextAreas []string
	Confirms  []bool
	Selects   []int

	Infos    []string
	Messages []string
	// InfoErr, when set, is returned by Info after recording the message.
	InfoErr  error

	inputPos    int
	passwordPos int
	textPos     int
	confirmPos  int
	selectPos   int
}

var _ prompt.Driver = (*ScriptedDriver)(nil)

func (s *ScriptedDriver) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	s.Messages = append(s.Messages, cfg.Message)
	if s.inputPos >= len(s.Inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.Inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *ScriptedDriver) Password(_ context.Context, cfg prompt.InputConfig) (string, error) {
	s.Messages = append(s.Messages, cfg.Message)
	if s.passwordPos >= len(s.Passwords) {
		return "", errors.New("no password scripted")
	}
	val := s.Passwords[s.passwordPos]
	s.passwordPos++
	return val, nil
}

func (s *ScriptedDriver) Confirm(_ context.Context, cfg prompt.ConfirmConfig) (bool, error) {
	s.Messages = append(s.Messages, cfg.Message)
	if s.confirmPos >= len(s.Confirms) {
		return false, errors.New("no confirm scripted")
	}
	val := s.Confirms[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *ScriptedDriver) Select(_ context.Context, cfg prompt.SelectConfig) (int, error) {
	s.Messages = append(s.Messages, cfg.Message)
	if s.selectPos >= len(s.Selects) {
		return -1, errors.New("no select scripted")
	}
	val := s.Selects[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *ScriptedDriver) TextArea(_ context.Context, cfg prompt.TextAreaConfig) (string, error) {
	s.Messages = append(s.Messages, cfg.Message)
	if s.textPos >= len(s.TextAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.TextAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *ScriptedDriver) Info(_ context.Context, msg string) error {
	s.Infos = append(s.Infos, msg)
	return s.InfoErr
}

// Consumed reports whether every scripted answer was used.
func (s *ScriptedDriver) Consumed() bool {
	return s.inputPos == len(s.Inputs) &&
		s.passwordPos == len(s.Passwords) &&
		s.textPos == len(s.TextAreas) &&
		s.confirmPos == len(s.Confirms) &&
		s.selectPos == len(s.Selects)
}
