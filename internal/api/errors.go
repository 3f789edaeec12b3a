package api

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status int
	// Detail is the server's message, kept verbatim for display.
	Detail string
	// Fields holds per-field validation failures, if any.
	Fields []FieldError
}

// FieldError is one entry of a validation error response.
type FieldError struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message())
}

// Message returns the text to show to the user.
func (e *Error) Message() string {
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			if f.Field == "" {
				parts = append(parts, f.Message)
				continue
			}
			parts = append(parts, f.Field+": "+f.Message)
		}
		return strings.Join(parts, "; ")
	}
	if e.Detail != "" {
		return e.Detail
	}
	if t := http.StatusText(e.Status); t != "" {
		return t
	}
	return "request failed with status " + strconv.Itoa(e.Status)
}

// IsStatus reports whether err is an *Error with the given status code.
func IsStatus(err error, code int) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == code
}

// IsNetwork reports whether err happened before any response was received:
// connection failures, aborted requests and timeouts.
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// parseError builds an *Error from a failed response body. It understands
// {"detail": "..."}, FastAPI validation lists
// {"detail": [{"loc": ["body", "email"], "msg": "..."}]}, and
// {"message": "..."} / {"error": "..."} shapes. Anything else is used as
// plain text.
func parseError(status int, body []byte) *Error {
	e := &Error{Status: status}
	if len(body) == 0 {
		return e
	}

	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		e.Detail = strings.TrimSpace(string(body))
		return e
	}

	var fallback string
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "detail":
			return decodeDetail(d, e)
		case "message", "error":
			if d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			if fallback == "" {
				fallback = s
			}
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return &Error{Status: status, Detail: strings.TrimSpace(string(body))}
	}
	if e.Detail == "" && len(e.Fields) == 0 {
		e.Detail = fallback
	}
	return e
}

func decodeDetail(d *jx.Decoder, e *Error) error {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		e.Detail = s
		return nil
	case jx.Array:
		return d.Arr(func(d *jx.Decoder) error {
			if d.Next() != jx.Object {
				return d.Skip()
			}
			f, err := decodeFieldError(d)
			if err != nil {
				return err
			}
			e.Fields = append(e.Fields, f)
			return nil
		})
	case jx.Object:
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) != "message" || d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			e.Detail = s
			return nil
		})
	default:
		return d.Skip()
	}
}

func decodeFieldError(d *jx.Decoder) (FieldError, error) {
	var f FieldError
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "msg":
			if d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			f.Message = s
			return err
		case "loc":
			if d.Next() != jx.Array {
				return d.Skip()
			}
			var loc []string
			if err := d.Arr(func(d *jx.Decoder) error {
				switch d.Next() {
				case jx.String:
					s, err := d.Str()
					loc = append(loc, s)
					return err
				case jx.Number:
					n, err := d.Int()
					loc = append(loc, strconv.Itoa(n))
					return err
				default:
					return d.Skip()
				}
			}); err != nil {
				return err
			}
			// Drop the "body"/"query" location prefix FastAPI adds.
			if len(loc) > 1 && (loc[0] == "body" || loc[0] == "query" || loc[0] == "path") {
				loc = loc[1:]
			}
			f.Field = strings.Join(loc, ".")
			return nil
		default:
			return d.Skip()
		}
	})
	return f, err
}
