// Package main provides the entry point for the network agent.
// The agent mirrors the state of the network auto-magic daemon, reports
// an aggregate health status and raises desktop notifications when a
// wireless network needs a choice or a key.
//
// Features:
//   - Live view of profiles, connections, locations and modifiers
//   - Wireless scan tracking and favorite network management
//   - WiFi key storage using the system keyring
//   - Command-line interface for scripting and automation
//
// Usage:
//
//	nwam-agent [options]
//
// Environment:
//
//	The daemon must be reachable on the configured D-Bus bus.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yllada/nwam-agent/cli"
	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/config"
	"github.com/yllada/nwam-agent/daemon"
	"github.com/yllada/nwam-agent/keyring"
	"github.com/yllada/nwam-agent/notify"
	"github.com/yllada/nwam-agent/proxy"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
var (
	appVersion = "dev"
	buildTime  = "unknown"
	commitSHA  = "unknown"
)

var (
	showVersion = flag.Bool("version", false, "Show version and exit")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	showHelp    = flag.Bool("help", false, "Show help message")
	configPath  = flag.String("config", "", "Read configuration from this file")

	// CLI flags
	showStatus       = flag.Bool("status", false, "Show the network status")
	listObjects      = flag.Bool("list", false, "List profiles, locations, modifiers and favorites")
	activateProfile  = flag.String("profile", "", "Activate a profile by name")
	activateLocation = flag.String("location", "", "Activate a location by name")
	rescanDevice     = flag.String("rescan", "", "Request a wireless scan on a device")
)

func main() {
	flag.Parse()

	if *showHelp {
		cli.PrintHelp()
		os.Exit(0)
	}

	if *showVersion {
		fmt.Printf("%s v%s\n", common.AppName, appVersion)
		if buildTime != "unknown" {
			fmt.Printf("  Build:  %s\n", buildTime)
			fmt.Printf("  Commit: %s\n", commitSHA)
		}
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	cliMode := *showStatus || *listObjects || *activateProfile != "" || *activateLocation != "" || *rescanDevice != ""

	logLevel := cfg.LogLevel()
	if *verbose {
		logLevel = common.LevelDebug
	}
	if err := common.InitLogger(common.LogConfig{
		Level:       logLevel,
		EnableFile:  cfg.Log.File && !cliMode,
		MaxFileSize: 5 * 1024 * 1024, // 5MB
		MaxBackups:  5,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}
	defer common.CloseLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	client := daemon.NewDBusClient(daemon.DBusConfig{
		Bus:         cfg.Daemon.Bus,
		Service:     cfg.Daemon.Service,
		ObjectPath:  cfg.Daemon.ObjectPath,
		CallTimeout: cfg.Daemon.CallTimeout,
	}, common.GetLogger().Tagged("dbus"))

	if cliMode {
		os.Exit(runCLI(ctx, client))
	}

	if err := runAgent(ctx, cfg, client); err != nil {
		common.LogError("agent stopped: %v", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		cfg, err := config.LoadFromPath(*configPath)
		if err != nil {
			return config.DefaultConfig(), err
		}
		return cfg, nil
	}
	cfg, err := config.Load()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return cfg, err
}

// runAgent mirrors the daemon until ctx is cancelled.
func runAgent(ctx context.Context, cfg *config.Config, client daemon.Client) error {
	common.LogInfo("Starting %s v%s", common.AppName, appVersion)

	configDir, err := common.GetConfigDir()
	if err != nil {
		return err
	}
	keys := keyring.New(common.AppID, configDir)

	p := proxy.New(proxy.Options{
		Client: client,
		Logger: common.GetLogger().Tagged("proxy"),
		Keys:   keys,
		Listener: proxy.ListenerConfig{
			ConnectRetryInterval: cfg.Listener.ConnectRetryInterval,
			ConnectRetryMax:      cfg.Listener.ConnectRetryMax,
			ReconnectInterval:    cfg.Listener.ReconnectInterval,
			ReconnectAttempts:    cfg.Listener.ReconnectAttempts,
			QueueWarnDepth:       cfg.Listener.QueueWarnDepth,
		},
		CallTimeout:    cfg.Daemon.CallTimeout,
		RememberKeys:   cfg.WiFi.RememberKeys,
		AutoSupplyKeys: cfg.WiFi.AutoSupplyKeys,
	})

	notifier := notify.NewDesktopNotifier(common.GetLogger().Tagged("notify"))
	defer notifier.Close()
	bridge := notify.Attach(p, notifier, cfg.Notifications, common.GetLogger().Tagged("notify"))

	unsubscribe := p.Subscribe(func(n proxy.Notification) {
		if n.Kind == proxy.StatusChanged {
			common.LogInfo("network status: %s (%s)", n.Status, n.Reasons)
		}
	})
	defer unsubscribe()

	p.Start(ctx)
	<-ctx.Done()

	common.LogInfo("Shutting down")
	p.Close()
	bridge.Close()

	st := p.Stats()
	common.LogDebug("events received=%d dispatched=%d dropped=%d reconnects=%d",
		st.EventsReceived, st.EventsDispatched, st.EventsDropped, st.Reconnects)
	return nil
}

// runCLI takes a one-off snapshot of the daemon and runs the requested
// command against it. It returns the process exit code.
func runCLI(ctx context.Context, client daemon.Client) int {
	p, err := cli.Snapshot(ctx, client, common.GetLogger().Tagged("cli"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer client.Close()

	c := cli.New(p)
	var cliErr error
	switch {
	case *activateProfile != "":
		cliErr = c.ActivateProfile(ctx, *activateProfile)
	case *activateLocation != "":
		cliErr = c.ActivateLocation(ctx, *activateLocation)
	case *rescanDevice != "":
		cliErr = c.Rescan(ctx, *rescanDevice)
	case *listObjects:
		cliErr = c.List()
	case *showStatus:
		cliErr = c.Status()
	}

	if cliErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cliErr)
		return 1
	}
	return 0
}

// setupSignalHandler cancels the context on SIGINT/SIGTERM.
func setupSignalHandler(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		common.LogInfo("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
	}()
}

