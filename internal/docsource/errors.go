package docsource

import "fmt"

// LoadErrorKind classifies document load failures.
type LoadErrorKind string

const (
	KindNetwork LoadErrorKind = "network"
	KindHTTP    LoadErrorKind = "http"
	KindParse   LoadErrorKind = "parse"
)

// LoadError is a failed document fetch or parse.
type LoadError struct {
	Kind   LoadErrorKind
	Status int // HTTP status for KindHTTP, 0 otherwise
	Msg    string
	Cause  error
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("load document: status %d: %s", e.Status, e.Msg)
	case KindParse:
		return fmt.Sprintf("parse document: %s", e.Msg)
	default:
		return fmt.Sprintf("fetch document: %s", e.Msg)
	}
}

func (e *LoadError) Unwrap() error { return e.Cause }

func networkErr(err error) *LoadError {
	return &LoadError{Kind: KindNetwork, Msg: err.Error(), Cause: err}
}

func httpErr(status int, body string) *LoadError {
	return &LoadError{Kind: KindHTTP, Status: status, Msg: body}
}

func parseErr(err error) *LoadError {
	return &LoadError{Kind: KindParse, Msg: err.Error(), Cause: err}
}
