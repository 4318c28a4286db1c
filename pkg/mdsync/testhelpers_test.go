// Copyright 2026 UF Open Source Club

package mdsync

import (
	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
