package main

import (
	"fmt"
	"os"

	"github.com/temirov/filebundler/internal/cli"
	"github.com/temirov/filebundler/internal/utils"
)

// main is the entry point for the filebundler command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(false)
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()
	if applicationExecutionError := cli.Execute(); applicationExecutionError != nil {
		loggerInstance.Error(utils.ApplicationExecutionFailedMessage + ": " + applicationExecutionError.Error())
		_ = loggerInstance.Sync()
		os.Exit(1)
	}
}
