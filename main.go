package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"agentapi/pkg/agent"
	"agentapi/pkg/channels"
	_ "agentapi/pkg/channels/autoload"
	"agentapi/pkg/config"
	"agentapi/pkg/gateway"
	"agentapi/pkg/llm"
	_ "agentapi/pkg/llm/autoload"
	"agentapi/pkg/monitor"
	"agentapi/pkg/tools"

	jsoniter "github.com/json-iterator/go"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

// Build flags
var Version = ""
var Commit = ""
var Date = ""

const envPrefix = "AGENTAPI"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newCommand().ParseAndRun(ctx, os.Args[1:]); err != nil && !errors.Is(err, flag.ErrHelp) {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func newCommand() *ffcli.Command {
	fs := flag.NewFlagSet("agentapi", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "agentapi [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newServeCommand(),
			newAskCommand(),
			newVersionCommand(),
		},
	}
}

type paths struct {
	config string
	system string
}

func (p *paths) register(fs *flag.FlagSet) {
	fs.StringVar(&p.config, "config", "config.json", "application config: llm providers, channels, tools")
	fs.StringVar(&p.system, "system", "system.json", "engine config: retries, timeouts, memory (optional)")
}

func newServeCommand() *ffcli.Command {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	p := &paths{}
	p.register(fs)

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "agentapi serve [flags]",
		ShortHelp:  "run the HTTP API and the configured channels",
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return serve(ctx, p)
		},
	}
}

func newAskCommand() *ffcli.Command {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	p := &paths{}
	p.register(fs)

	return &ffcli.Command{
		Name:       "ask",
		ShortUsage: "agentapi ask [flags] <question...>",
		ShortHelp:  "answer one question in the default session and exit",
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("ask: question is required")
			}
			_, _, agents, err := setup(p)
			if err != nil {
				return err
			}
			// the agent applies llm_timeout_ms itself
			reply, err := agents.Run(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}
}

func newVersionCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "agentapi version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := Version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if Commit != "" {
				versionFields = append(versionFields, Commit)
			}
			if Date != "" {
				versionFields = append(versionFields, Date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

// setup loads both config files and builds the agent manager.
func setup(p *paths) (*config.Config, *config.SystemConfig, *agent.Manager, error) {
	cfg, sys, err := config.Load(p.config, p.system)
	if err != nil {
		return nil, nil, nil, err
	}
	monitor.SetupSlog(sys.LogLevel)

	client, err := llm.NewFromConfig(cfg.LLM, sys)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to init LLM client: %w", err)
	}

	store := agent.NewSessionStore(client, agent.OptionsFromSystem(sys, cfg.SystemPrompt))
	agents := agent.NewManager(store, tools.NewToolRegistry(), agent.WithTools(tools.FromNames(cfg.Tools)...))
	return cfg, sys, agents, nil
}

func serve(ctx context.Context, p *paths) error {
	cfg, sys, agents, err := setup(p)
	if err != nil {
		return err
	}
	slog.Info("Agent API starting", "providers", strings.Join(llm.Providers(), ","), "tools", len(agents.Tools().List()))

	if ttl := time.Duration(sys.SessionIdleTTLMs) * time.Millisecond; ttl > 0 {
		agents.Sessions().StartJanitor(ctx, ttl/2, ttl)
	}

	channelConfigs := cfg.Channels
	if len(channelConfigs) == 0 {
		// the HTTP API is the service; serve it even without explicit config
		channelConfigs = map[string]jsoniter.RawMessage{"web": nil}
	}

	gw, err := gateway.NewGatewayBuilder().
		WithAgentManager(agents).
		WithSystemConfig(sys).
		WithMonitor(monitor.NewCLIMonitor()).
		WithRegistrar(func(g *gateway.GatewayManager) {
			channels.LoadFromConfig(g, channelConfigs, sys)
		}).
		Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build gateway: %w", err)
	}
	if len(gw.ChannelIDs()) == 0 {
		return fmt.Errorf("no channel could be started")
	}

	go watchSystemConfig(ctx, p.system)

	<-ctx.Done()
	slog.Info("Received shutdown signal. Stopping services...")
	gw.StopAll()
	slog.Info("Bye!")
	return nil
}

// watchSystemConfig re-applies hot-reloadable settings when system.json
// changes. Only the log level takes effect without a restart.
func watchSystemConfig(ctx context.Context, path string) {
	for range config.WatchConfig(ctx, config.DefaultDebounce, path) {
		sys := config.LoadSystemConfig(path)
		monitor.SetLevel(sys.LogLevel)
		slog.Info("System config reloaded", "log_level", sys.LogLevel)
	}
}
