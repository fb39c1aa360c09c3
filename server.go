package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tracker/logging"
)

const shutdownTimeout = 10 * time.Second

// runServer serves until SIGINT or SIGTERM. endSessions runs before in-flight
// requests are drained, closeStores after.
func runServer(h http.Handler, port string, endSessions, closeStores func()) {
	log := logging.For("server")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("Server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server failed")
		}
	case sig := <-signalChan:
		log.WithField("signal", sig.String()).Info("Caught signal, shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Event streams only end when their sessions do.
		endSessions()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Graceful shutdown timed out")
		}
	}

	endSessions()
	closeStores()
	log.Info("Server shutdown complete")
}
