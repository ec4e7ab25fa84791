// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package api

import "errors"

// ErrInvalidListeningAddress is returned when the api listening address is empty
var ErrInvalidListeningAddress = errors.New("invalid api listening address")
