// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package frontier

import "errors"

// Sentinel errors for the FrontierGraph database.
var (
	// ErrUnknownEntity indicates a name lookup found no interned entity.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrClosed indicates the database has been closed.
	ErrClosed = errors.New("database closed")

	// ErrNoSeeds indicates Expand was called without seeds.
	ErrNoSeeds = errors.New("at least one seed is required")
)
