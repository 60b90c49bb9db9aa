// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package units

const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)
