// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package units

// Durations in whole seconds, the unit interest accrues in.
const (
	Second uint64 = 1
	Minute uint64 = 60 * Second
	Hour   uint64 = 60 * Minute
	Day    uint64 = 24 * Hour
	Year   uint64 = 365 * Day
)
