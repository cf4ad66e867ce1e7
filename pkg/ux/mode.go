// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Mode controls how much styling CLI output carries.
type Mode string

const (
	// ModeRich uses colors, icons and boxes.
	ModeRich Mode = "rich"

	// ModePlain uses icons but no colors.
	ModePlain Mode = "plain"

	// ModeMachine prints tab-separated, unstyled lines for scripts.
	ModeMachine Mode = "machine"
)

// ParseMode converts a flag or env value to a Mode. Unknown values are
// rich.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain", "minimal", "p":
		return ModePlain
	case "machine", "quiet", "q":
		return ModeMachine
	default:
		return ModeRich
	}
}

// DetectMode picks a mode for f.
//
// FRONTIER_OUTPUT wins when set. Otherwise a terminal gets ModeRich and
// anything else (pipes, files, CI logs) gets ModeMachine.
func DetectMode(f *os.File) Mode {
	if env := os.Getenv("FRONTIER_OUTPUT"); env != "" {
		return ParseMode(env)
	}
	if f != nil && isTerminal(f.Fd()) {
		return ModeRich
	}
	return ModeMachine
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
