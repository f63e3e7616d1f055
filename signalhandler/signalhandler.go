// Package signalhandler wires SIGINT/SIGTERM into context cancellation and
// picks worker counts that leave headroom for cgo decode work.
package signalhandler

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

// Setup registers for SIGINT and SIGTERM and cancels the returned context
// on the first signal. A second signal exits immediately.
func Setup(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\ninterrupted, finishing current batch (press again to abort)")
		cancel()
		<-sigChan
		os.Exit(1)
	}()

	return ctx
}

// GetOptimalProcs returns the worker count for CPU-bound image work. Image
// decoding through cgo misbehaves when every core is saturated, so leave a
// quarter of them free.
func GetOptimalProcs() int {
	maxProcs := (runtime.NumCPU() * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}
	return maxProcs
}
