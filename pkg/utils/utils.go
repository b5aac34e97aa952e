package utils

import (
	"context"
	"os"
	"os/signal"
	"regexp"
	"syscall"
)

var pciAddressRe = regexp.MustCompile(`^[0-9a-fA-F]{4}:[0-9a-fA-F]{2}:[0-9a-fA-F]{2}\.[0-7]$`)

var onlyOneSignalHandler = make(chan struct{})

// SetupSignalHandler returns a context which is canceled on SIGINT or SIGTERM.
// a second signal terminates the program with exit code 1. may be called only once.
func SetupSignalHandler() context.Context {
	close(onlyOneSignalHandler) // panics when called twice

	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()

	return ctx
}

// PathExists returns true if path exists in the system or false if it doesnt
// in case of error, and error is returned
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	} else if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// IsPCIAddress returns true if s is a full PCI address (e.g '0000:03:00.4')
func IsPCIAddress(s string) bool {
	return pciAddressRe.MatchString(s)
}
