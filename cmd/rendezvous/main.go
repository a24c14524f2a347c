package main

import (
	"github.com/BioHazard786/rendezvous/internal/cmd"
	"github.com/BioHazard786/rendezvous/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
