package main

import (
	"context"
	"os"

	"github.com/gregLibert/hwlink/cmd"
	"github.com/gregLibert/hwlink/pkg/logging"
)

func main() {
	if err := cmd.App().Run(context.Background(), os.Args); err != nil {
		logger := logging.NewRuntime()
		logger.Fatal().Err(err).Msg("hwlink failed")
	}
}
