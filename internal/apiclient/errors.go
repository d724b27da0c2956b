package apiclient

import (
	"context"
	"errors"
	"fmt"
)

// ErrCanceled means a newer request took over. Pages swallow it silently.
var ErrCanceled = errors.New("request canceled")

// Kind classifies a failed call for the UI and for tests.
type Kind int

const (
	// KindApplication: transport ok, envelope code != 0.
	KindApplication Kind = iota + 1
	// KindServer: a response arrived with a failing HTTP status.
	KindServer
	// KindNetwork: no response at all.
	KindNetwork
	// KindConfig: the request could not be built locally.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindApplication:
		return "application"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

const (
	msgNetwork = "network unreachable"
	msgConfig  = "request configuration error"
)

// Error carries every failure except cancellation.
type Error struct {
	Kind    Kind
	Path    string
	Status  int
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindApplication:
		return fmt.Sprintf("%s: %s (code %d)", e.Path, e.Message, e.Code)
	case KindServer:
		return fmt.Sprintf("%s: %s (http %d)", e.Path, e.Message, e.Status)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsCanceled reports whether err comes from a superseded request.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// KindOf returns the taxonomy kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// UserMessage returns the text a page shows for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// ConfigError wraps a local setup failure; errors.Is still sees err.
func ConfigError(path string, err error) *Error {
	return &Error{Kind: KindConfig, Path: path, Message: msgConfig, Err: err}
}
