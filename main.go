package main

import (
	"github.com/BioHazard786/rtcstreamer/cmd"
	"github.com/BioHazard786/rtcstreamer/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
