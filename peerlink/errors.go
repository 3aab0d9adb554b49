// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package peerlink

import "errors"

var (
	ErrAlreadyStarted = errors.New("connect already called")
	ErrClosed         = errors.New("link closed")
	ErrNotOpen        = errors.New("link not open")
	ErrConnectTimeout = errors.New("connect timed out")
)
