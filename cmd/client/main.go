package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poll-chat/client"
	"poll-chat/errors"
	"poll-chat/runtime/workers"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run(os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run asks for a nickname, then polls the log and sends every input line
// until stdin closes or a termination signal arrives.
func run(in io.Reader, out io.Writer) (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	config, err := loadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	c := client.NewClient(config.ServerURL, nil, log)
	detector, err := client.NewDetector(config.Detector, c)
	if err != nil {
		return exitConfig, err
	}
	session := client.NewSession(c)
	lines := bufio.NewScanner(in)

	// 2. Nickname, asked before signals are trapped so Ctrl+C still quits here
	for session.State() == client.Unnamed {
		fmt.Fprint(out, "Nickname: ")
		if !lines.Scan() {
			return exitOK, lines.Err()
		}
		if err := session.SetName(lines.Text()); err != nil {
			fmt.Fprintln(out, "A nickname is required.")
		}
	}

	// 3. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Poll in the background, send in the foreground
	renderer := client.NewTerminalRenderer(out, config.ClearScreen)
	poller := client.NewPoller(log, c, session, detector, renderer, client.PollerOptions{
		Interval:    config.PollInterval,
		RenderLimit: config.RenderLimit,
	})
	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()
	polling := make(chan struct{})
	go func() {
		defer close(polling)
		workers.NewSupervisor(log, time.Second).Add(poller).Run(pollCtx)
	}()

	input := make(chan error, 1)
	go func() {
		for lines.Scan() {
			err := session.Send(ctx, lines.Text())
			if stderrors.Is(err, errors.ErrEmptyMessage) {
				continue
			}
			if err != nil {
				log.Warn("Message not sent", "error", err)
			}
		}
		input <- lines.Err()
	}()

	var inputErr error
	select {
	case <-ctx.Done():
	case inputErr = <-input:
	}
	cancelPoll()
	<-polling
	if inputErr != nil {
		return exitRuntime, inputErr
	}
	return exitOK, nil
}
