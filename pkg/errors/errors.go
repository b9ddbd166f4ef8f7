// Copyright 2023 LiveKit, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"github.com/livekit/psrpc"
)

var (
	ErrUnsupportedFormat = psrpc.NewErrorf(psrpc.InvalidArgument, "unsupported audio format")
	ErrTruncatedCodes    = psrpc.NewErrorf(psrpc.InvalidArgument, "truncated code file")
)

func ErrCouldNotParseConfig(err error) psrpc.Error {
	return psrpc.NewErrorf(psrpc.InvalidArgument, "could not parse config: %v", err)
}

func ErrInvalidConfig(format string, args ...any) psrpc.Error {
	return psrpc.NewErrorf(psrpc.InvalidArgument, "invalid config: "+format, args...)
}

func ErrInvalidCodeFile(format string, args ...any) psrpc.Error {
	return psrpc.NewErrorf(psrpc.InvalidArgument, "invalid code file: "+format, args...)
}

func ErrCodecDisabled(name string) psrpc.Error {
	return psrpc.NewErrorf(psrpc.FailedPrecondition, "codec disabled: %s", name)
}

func ErrMissingArgument(name string) psrpc.Error {
	return psrpc.NewErrorf(psrpc.InvalidArgument, "missing argument: %s", name)
}

func ErrFileNotFound(path string) psrpc.Error {
	return psrpc.NewErrorf(psrpc.NotFound, "file not found: %s", path)
}
