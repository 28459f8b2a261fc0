/*
DESCRIPTION
  main.go is the av1grain binary entrypoint.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"os"
	"runtime"

	"github.com/rs/zerolog/log"

	"github.com/ausocean/av1grain/cmd"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Error().Str("stack", string(buf)).Interface("error", err).Msg("panic recover")
			os.Exit(2)
		}
	}()
	os.Exit(cmd.Execute())
}
