package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/stomp-debugger/tui/internal/app"
	"github.com/stomp-debugger/tui/internal/config"
	"github.com/stomp-debugger/tui/internal/session"
	"github.com/stomp-debugger/tui/internal/stomp"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// run returns only after its deferred cleanup, so exiting here is safe.
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig parses the command line, loads the config file and applies
// the flag overrides.
func loadConfig(args []string) (*config.Config, error) {
	fs := flag.NewFlagSet("stomp-tui", flag.ExitOnError)
	configPath := fs.String("config", "stomp-tui.yaml", "Path to the YAML config file")
	brokerURL := fs.String("url", "", "Broker endpoint (ws://, wss://, http:// or https://)")
	token := fs.String("token", "", "Bearer token sent with CONNECT")
	logFile := fs.String("log", "", "Debug log file (overrides log.file; \"-\" disables logging)")
	fs.Parse(args)

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", *configPath, err)
	}
	if *brokerURL != "" {
		cfg.Connection.URL = *brokerURL
	}
	if *token != "" {
		cfg.Connection.Token = *token
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
	return cfg, nil
}

// openLog routes the standard logger to the configured file. It returns nil
// for w when logging is disabled.
func openLog(cfg *config.Config) (w io.Writer, closeLog func() error, err error) {
	if cfg.Log.File == "" || cfg.Log.File == "-" {
		log.SetOutput(io.Discard)
		return nil, func() error { return nil }, nil
	}
	f, err := tea.LogToFile(cfg.Log.File, "stomp-tui")
	if err != nil {
		return nil, nil, fmt.Errorf("opening log %s: %w", cfg.Log.File, err)
	}
	return f, f.Close, nil
}

func run(cfg *config.Config) error {
	logOut, closeLog, err := openLog(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctrl := session.NewController(session.Options{
		Factory:           stomp.Factory(&http.Client{Timeout: 10 * time.Second}),
		DisconnectGrace:   cfg.Connection.DisconnectGrace,
		ConfirmDisconnect: cfg.UI.ConfirmDisconnect,
		HeartbeatIncoming: cfg.Connection.HeartbeatIncoming,
		HeartbeatOutgoing: cfg.Connection.HeartbeatOutgoing,
		Metrics:           gometrics.NewRegistry(),
		Form: session.Form{
			URL:                  cfg.Connection.URL,
			Token:                cfg.Connection.Token,
			SubscribeDestination: cfg.Defaults.SubscribeDestination,
			SendDestination:      cfg.Defaults.SendDestination,
			Body:                 cfg.Defaults.Body,
		},
	})
	defer ctrl.Close()

	if logOut != nil && cfg.Log.MetricsInterval > 0 {
		stop := make(chan struct{})
		defer close(stop)
		ctrl.ReportMetrics(cfg.Log.MetricsInterval, logOut, stop)
	}

	_, err = tea.NewProgram(app.New(ctrl), tea.WithAltScreen()).Run()
	return err
}
