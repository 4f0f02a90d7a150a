// Package prompt collects form values in a terminal. A Session walks the
// fields of a definition, feeds every answer through the form controller's
// bindings and submits the form once all fields were visited.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/goliatone/go-formstate/pkg/definition"
	"github.com/goliatone/go-formstate/pkg/fieldarray"
	"github.com/goliatone/go-formstate/pkg/form"
)

const defaultMaxAttempts = 3

// Session drives one form controller through a definition.
type Session struct {
	def         definition.Definition
	ctrl        *form.Controller
	driver      Driver
	logger      *log.Logger
	maxAttempts int
}

// NewSession prepares a session. Without WithDriver the survey driver is
// used.
func NewSession(def definition.Definition, ctrl *form.Controller, opts ...Option) *Session {
	s := &Session{
		def:         def,
		ctrl:        ctrl,
		logger:      log.New(io.Discard),
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.driver == nil {
		s.driver = NewSurveyDriver()
	}
	return s
}

// Run prompts every field and submits the form. Fields that fail validation
// on submit are asked again, up to the configured number of attempts. The
// submitted values are returned.
func (s *Session) Run(ctx context.Context) (map[string]any, error) {
	if ctx == nil {
		return nil, errors.New("prompt: context is required")
	}
	if s.ctrl == nil {
		return nil, errors.New("prompt: form controller is nil")
	}

	for _, field := range s.def.Fields {
		if err := s.promptField(ctx, field); err != nil {
			return nil, err
		}
	}

	var submitted map[string]any
	submit := s.ctrl.HandleSubmit(func(values map[string]any) error {
		submitted = values
		return nil
	})

	for attempt := 1; ; attempt++ {
		err := submit(nil)
		if err == nil {
			s.logger.Debug("form submitted", "form", s.def.Name, "attempts", attempt)
			return submitted, nil
		}

		var verr *form.ValidationError
		if !errors.As(err, &verr) || attempt >= s.maxAttempts {
			return nil, err
		}
		s.logger.Debug("submit rejected", "form", s.def.Name, "attempt", attempt, "errors", len(verr.Fields))

		for _, field := range s.def.Fields {
			msg, failed := verr.Fields[field.Name]
			if !failed {
				continue
			}
			if err := s.notify(ctx, fmt.Sprintf("Invalid %s: %s", field.DisplayLabel(), msg)); err != nil {
				return nil, err
			}
			if err := s.promptField(ctx, field); err != nil {
				return nil, err
			}
		}
	}
}

func (s *Session) promptField(ctx context.Context, field definition.Field) error {
	switch field.EffectiveKind() {
	case definition.KindList:
		return s.promptList(ctx, field)
	default:
		for {
			value, err := s.ask(ctx, field, s.ctrl.Watch(field.Name))
			if err != nil {
				if errors.Is(err, errRetry) {
					continue
				}
				return err
			}
			if err := s.ctrl.Register(field.Name).OnChange(value); err != nil {
				return err
			}
			if msg := s.ctrl.Error(field.Name); msg != "" {
				if err := s.notify(ctx, fmt.Sprintf("Invalid %s: %s", field.DisplayLabel(), msg)); err != nil {
					return err
				}
				continue
			}
			return nil
		}
	}
}

var errRetry = errors.New("prompt: retry")

// ask prompts a scalar value. Parse failures are reported to the user and
// surface as errRetry.
func (s *Session) ask(ctx context.Context, field definition.Field, current any) (any, error) {
	label := field.DisplayLabel()
	help := field.Help

	switch field.EffectiveKind() {
	case definition.KindText:
		return s.driver.Input(ctx, InputConfig{Message: label, Default: stringValue(current), Help: help})
	case definition.KindPassword:
		return s.driver.Password(ctx, InputConfig{Message: label, Default: stringValue(current), Help: help})
	case definition.KindTextArea:
		return s.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: stringValue(current), Help: help})
	case definition.KindConfirm:
		def, _ := current.(bool)
		return s.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: def, Help: help})
	case definition.KindSelect:
		idx, err := s.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      field.Options,
			DefaultIndex: indexOf(field.Options, stringValue(current)),
			Help:         help,
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(field.Options) {
			return nil, s.retry(ctx, fmt.Sprintf("Invalid %s selection", label))
		}
		return field.Options[idx], nil
	case definition.KindInteger, definition.KindNumber:
		raw, err := s.driver.Input(ctx, InputConfig{Message: label, Default: stringValue(current), Help: help})
		if err != nil {
			return nil, err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		if field.EffectiveKind() == definition.KindInteger {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, s.retry(ctx, fmt.Sprintf("Invalid %s: %v", label, err))
			}
			return n, nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, s.retry(ctx, fmt.Sprintf("Invalid %s: %v", label, err))
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, field.Kind)
	}
}

func (s *Session) promptList(ctx context.Context, field definition.Field) error {
	items := fieldarray.New(field.Name, s.ctrl.Update)
	label := field.DisplayLabel()
	item := definition.Field{Name: field.Name, Label: label + " item", Kind: definition.KindText}
	if field.Item != nil {
		item = *field.Item
		item.Name = field.Name
		if strings.TrimSpace(item.Label) == "" {
			item.Label = label + " item"
		}
	}

	for {
		existing := listValues(s.ctrl.Watch(field.Name))
		if len(existing) > 0 {
			keep, err := s.driver.Confirm(ctx, ConfirmConfig{
				Message: fmt.Sprintf("Keep %s (%s)?", label, joinValues(existing)),
				Default: true,
			})
			if err != nil {
				return err
			}
			if !keep {
				for range existing {
					if err := items.Remove(0); err != nil {
						return err
					}
				}
			}
		}

		for {
			add, err := s.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add %s?", item.Label)})
			if err != nil {
				return err
			}
			if !add {
				break
			}
			value, err := s.ask(ctx, item, nil)
			if errors.Is(err, errRetry) {
				continue
			}
			if err != nil {
				return err
			}
			if err := items.Append(value); err != nil {
				return err
			}
		}

		if msg := s.ctrl.Validate()[field.Name]; msg != "" {
			if err := s.notify(ctx, fmt.Sprintf("Invalid %s: %s", label, msg)); err != nil {
				return err
			}
			continue
		}
		return nil
	}
}

// notify shows msg through the driver. A failed write ends the session.
func (s *Session) notify(ctx context.Context, msg string) error {
	if err := s.driver.Info(ctx, msg); err != nil {
		s.logger.Debug("info failed", "form", s.def.Name, "err", err)
		return fmt.Errorf("prompt: show message: %w", err)
	}
	return nil
}

// retry reports msg and returns errRetry, or the driver error when msg could
// not be shown.
func (s *Session) retry(ctx context.Context, msg string) error {
	if err := s.notify(ctx, msg); err != nil {
		return err
	}
	return errRetry
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func listValues(value any) []any {
	items, _ := value.([]any)
	return items
}

func joinValues(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = stringValue(v)
	}
	return strings.Join(parts, ", ")
}
