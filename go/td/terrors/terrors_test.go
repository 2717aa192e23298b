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

package terrors

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeInvalidArgument, "bad input")
	assert.Equal(t, "bad input", err.Error())
	assert.Equal(t, CodeInvalidArgument, Code(err))
}

func TestErrorf(t *testing.T) {
	err := Errorf(CodeUnavailable, "connection to %v is broken", "host:123")
	assert.Equal(t, "connection to host:123 is broken", err.Error())
	assert.Equal(t, CodeUnavailable, Code(err))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ignored"))
	assert.NoError(t, Wrapf(nil, "ignored %d", 42))

	base := Errorf(CodeDeadlineExceeded, "deadline exceeded")
	err := Wrapf(Wrap(base, "invoking"), "attempt %d", 2)
	assert.Equal(t, "attempt 2: invoking: deadline exceeded", err.Error())

	// The code survives any amount of wrapping.
	assert.Equal(t, CodeDeadlineExceeded, Code(err))
	assert.Same(t, base, RootCause(err))
}

func TestWrapForeignError(t *testing.T) {
	base := io.EOF
	err := Wrap(base, "reading segment")
	assert.Equal(t, "reading segment: EOF", err.Error())
	assert.Equal(t, CodeUnknown, Code(err))
	assert.Same(t, base, RootCause(err))
	assert.True(t, errors.Is(err, io.EOF))
}

func TestCode(t *testing.T) {
	assert.Equal(t, CodeOK, Code(nil))
	assert.Equal(t, CodeUnknown, Code(errors.New("plain")))
	assert.Equal(t, CodeAborted, Code(New(CodeAborted, "gone")))
}

func TestRootCause(t *testing.T) {
	plain := errors.New("plain")
	assert.Same(t, plain, RootCause(plain))
	assert.NoError(t, RootCause(nil))
}

func TestFormat(t *testing.T) {
	err := New(CodeInternal, "broken")
	assert.Equal(t, "broken", fmt.Sprintf("%v", err))
	assert.Equal(t, `"broken"`, fmt.Sprintf("%q", err))
	assert.Equal(t, "code: internal, message: broken", fmt.Sprintf("%+v", err))

	wrapped := Wrap(err, "loading plan")
	assert.Equal(t, "loading plan: broken", fmt.Sprintf("%v", wrapped))
	require.Equal(t, "loading plan\ncode: internal, message: broken", fmt.Sprintf("%+v", wrapped))
}
