package sentry

import (
	"os"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

// FlushTime bounds how long callers wait for buffered events on exit.
var FlushTime = 2 * time.Second

// Sentry is a small builder over the sentry-go hub. Events are only sent
// when SENTRY_DSN is set and APP_ENV is not "local".
type Sentry struct {
	context echo.Context
	error   error
	level   sentrygo.Level
	tags    map[string]string
}

func WithContext(c echo.Context) *Sentry {
	return new(Sentry).WithContext(c)
}

func (s *Sentry) WithContext(c echo.Context) *Sentry {
	s.context = c
	return s
}

func (s *Sentry) WithTags(tags map[string]string) *Sentry {
	s.tags = tags
	return s
}

func (s *Sentry) Error(err error) {
	s.error = err
	s.level = sentrygo.LevelError
	s.sendError()
}

func Error(err error) {
	new(Sentry).Error(err)
}

func (s *Sentry) enabled() bool {
	return os.Getenv("SENTRY_DSN") != "" && os.Getenv("APP_ENV") != "local"
}

func (s *Sentry) sendError() {
	if !s.enabled() || s.error == nil {
		return
	}
	hub := s.getHub()
	hub.WithScope(func(scope *sentrygo.Scope) {
		s.configScope(scope)
		hub.CaptureException(s.error)
	})
}

func (s *Sentry) getHub() *sentrygo.Hub {
	if s.context != nil {
		if hub := sentryecho.GetHubFromContext(s.context); hub != nil {
			return hub
		}
	}
	return sentrygo.CurrentHub()
}

func (s *Sentry) configScope(scope *sentrygo.Scope) {
	if s.level != "" {
		scope.SetLevel(s.level)
	}
	if len(s.tags) > 0 {
		scope.SetTags(s.tags)
	}
	if s.context != nil {
		scope.SetRequest(s.context.Request())
		if rid := s.context.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
			scope.SetTag("request_id", rid)
		}
	}
}
