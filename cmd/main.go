package main

import (
	"os"
	"os/signal"
	"syscall"

	"crisiswatch/internal/bootstrap"
	"crisiswatch/pkg/logger"
)

func main() {
	container := bootstrap.NewContainer()
	container.MustInit()
	defer logger.Sync()

	if err := container.Start(); err != nil {
		container.Log.Errorf("Failed to start: %v", err)
		container.Shutdown()
		os.Exit(1)
	}

	waitForShutdown(container)
	container.Shutdown()
}

// waitForShutdown blocks until a termination signal arrives or the
// container context is cancelled by a fatal component error
func waitForShutdown(c *bootstrap.Container) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		c.Log.Infof("Received signal: %v", sig)
	case <-c.Context.Done():
		c.Log.Info("Context cancelled")
	}
}
