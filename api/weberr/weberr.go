// Package weberr decorates errors with what the client should see and what
// the request log should record, without losing the cause.
package weberr

import (
	"errors"
	"net/http"
)

type Opt func(error) error

func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

// WithResponse attaches the body and status rendered to the client.
func WithResponse(body any, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

// WithFields attaches log fields. Nested calls add to the outer fields.
func WithFields(fields map[string]any) Opt {
	return func(err error) error {
		return &fieldsError{error: err, fields: fields}
	}
}

type responseError struct {
	error
	body   any
	status int
}

func (e *responseError) Unwrap() error { return e.error }

type fieldsError struct {
	error
	fields map[string]any
}

func (e *fieldsError) Unwrap() error { return e.error }

// Response returns the outermost attached response.
func Response(err error) (body any, status int, ok bool) {
	var re *responseError
	if errors.As(err, &re) {
		return re.body, re.status, true
	}
	return nil, 0, false
}

// Fields merges the log fields of every layer; outer layers win.
func Fields(err error) (map[string]any, bool) {
	var out map[string]any
	for err != nil {
		var fe *fieldsError
		if !errors.As(err, &fe) {
			break
		}
		if out == nil {
			out = make(map[string]any, len(fe.fields))
		}
		for k, v := range fe.fields {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
		err = fe.error
	}
	return out, out != nil
}

// Message is the text shown on plain pages: the attached message when there
// is one, the status text otherwise. Errors without a response are a 500.
func Message(err error) (string, int) {
	body, status, ok := Response(err)
	if !ok {
		return http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError
	}
	if er, ok := body.(*ErrorResponse); ok {
		return er.Error, status
	}
	return http.StatusText(status), status
}
