/*
Copyright 2023 The Tundra Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package terrors provides simple error handling primitives that carry an
// error Code alongside the message, in the spirit of github.com/pkg/errors.
//
// A new error is created with a code:
//
//	terrors.Errorf(terrors.CodeUnavailable, "connection to %v is broken", addr)
//
// Wrapping preserves the code of the innermost coded error:
//
//	if err != nil {
//	        return terrors.Wrap(err, "flushing segment")
//	}
//
// Code(err) extracts the code anywhere in the chain, and RootCause(err)
// unwraps to the original error.
package terrors

import (
	"errors"
	"fmt"
	"io"
)

// New returns an error with the supplied code and message.
func New(c code, message string) error {
	return &fundamental{
		code: c,
		msg:  message,
	}
}

// Errorf formats according to a format specifier and returns the string
// as a value that satisfies error.
func Errorf(c code, format string, args ...any) error {
	return &fundamental{
		code: c,
		msg:  fmt.Sprintf(format, args...),
	}
}

// fundamental is an error that has a message and a code, but no wrapped cause.
type fundamental struct {
	code code
	msg  string
}

func (f *fundamental) Error() string { return f.msg }

func (f *fundamental) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "code: %v, message: %v", f.code, f.msg)
			return
		}
		fallthrough
	case 's':
		io.WriteString(s, f.msg)
	case 'q':
		fmt.Fprintf(s, "%q", f.msg)
	}
}

// Wrap returns an error annotating err with a message.
// If err is nil, Wrap returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrapping{
		cause: err,
		msg:   message,
	}
}

// Wrapf returns an error annotating err with the format specifier.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...any) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

type wrapping struct {
	cause error
	msg   string
}

func (w *wrapping) Error() string { return w.msg + ": " + w.cause.Error() }
func (w *wrapping) Unwrap() error { return w.cause }

func (w *wrapping) Format(s fmt.State, verb rune) {
	if rune('v') == verb && s.Flag('+') {
		fmt.Fprintf(s, "%v\n%+v", w.msg, w.Unwrap())
		return
	}
	io.WriteString(s, w.Error())
}

// Code returns the error code of the first coded error found in err's
// chain, or CodeUnknown if there is none. A nil error has CodeOK.
func Code(err error) code {
	if err == nil {
		return CodeOK
	}
	var f *fundamental
	if errors.As(err, &f) {
		return f.code
	}
	return CodeUnknown
}

// RootCause walks the chain of wrapped errors and returns the innermost
// error. An error without a cause is returned unchanged.
func RootCause(err error) error {
	for err != nil {
		cause := errors.Unwrap(err)
		if cause == nil {
			break
		}
		err = cause
	}
	return err
}
