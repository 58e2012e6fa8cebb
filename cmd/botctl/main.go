// Command botctl controls the bot daemon: start, stop, restart, status, and
// log following, all keyed off the PID file from the shared configuration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alanyoungcy/pacificabot/internal/config"
	"github.com/alanyoungcy/pacificabot/internal/domain"
	"github.com/alanyoungcy/pacificabot/internal/procman"
)

const usage = `usage: botctl [flags] <command>

commands:
  start     launch the bot detached from the terminal
  stop      stop the running bot (SIGTERM, then SIGKILL after a grace period)
  restart   stop then start
  status    report whether the bot is running
  logs      follow the bot log file

flags:
`

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	binary := flag.String("binary", "pacificabot", "bot binary to launch")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "botctl: load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	mgr := procman.New(cfg.Process.PIDFile, cfg.LogFile, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	botArgs := []string{"-config", *configPath}

	switch cmd := flag.Arg(0); cmd {
	case "start":
		err = mgr.Start(*binary, botArgs...)
	case "stop":
		err = mgr.Stop(ctx)
		if errors.Is(err, domain.ErrNotRunning) {
			fmt.Println("not running")
			err = nil
		}
	case "restart":
		err = mgr.Restart(ctx, *binary, botArgs...)
	case "status":
		err = mgr.Status(os.Stdout)
	case "logs":
		err = followLogs(cfg.LogFile)
	default:
		fmt.Fprintf(os.Stderr, "botctl: unknown command %q\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "botctl: %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

// followLogs streams the log file to stdout, polling for appended data the way
// tail -f does. It runs until interrupted.
func followLogs(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	// Start near the end so the operator sees recent lines, not the whole
	// history.
	if info, err := f.Stat(); err == nil && info.Size() > 4096 {
		if _, err := f.Seek(-4096, io.SeekEnd); err != nil {
			return err
		}
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			os.Stdout.Write(buf[:n])
		}
		if err == io.EOF {
			time.Sleep(250 * time.Millisecond)
			continue
		}
		if err != nil {
			return err
		}
	}
}
