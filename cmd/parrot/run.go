package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sevlyar/go-daemon"

	"github.com/roelfdiedericks/parrot/internal/channels/telegram"
	"github.com/roelfdiedericks/parrot/internal/commands"
	"github.com/roelfdiedericks/parrot/internal/config"
	"github.com/roelfdiedericks/parrot/internal/dispatch"
	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/media"
	"github.com/roelfdiedericks/parrot/internal/router"
	"github.com/roelfdiedericks/parrot/internal/session"
	"github.com/roelfdiedericks/parrot/internal/snapshot"
	"github.com/roelfdiedericks/parrot/internal/status"
	"github.com/roelfdiedericks/parrot/internal/types"
	"github.com/roelfdiedericks/parrot/internal/user"
	"github.com/roelfdiedericks/parrot/internal/wizard"
)

const shutdownTimeout = 10 * time.Second

// RunCmd runs the bot until interrupted.
type RunCmd struct {
	Daemon  bool   `help:"Detach and run in the background"`
	PidFile string `help:"PID file used with --daemon" default:"parrot.pid" type:"path"`
	LogFile string `help:"Log file used with --daemon" default:"parrot.log" type:"path"`
}

func (r *RunCmd) Run(cli *CLI) error {
	if r.Daemon {
		dctx := &daemon.Context{
			PidFileName: r.PidFile,
			PidFilePerm: 0644,
			LogFileName: r.LogFile,
			LogFilePerm: 0640,
			Umask:       027,
		}
		child, err := dctx.Reborn()
		if err != nil {
			return fmt.Errorf("failed to daemonize: %w", err)
		}
		if child != nil {
			fmt.Printf("parrot started in background (pid %d, log %s)\n", child.Pid, r.LogFile)
			return nil
		}
		defer func() { _ = dctx.Release() }()
	}

	cfg, path, err := loadConfig(cli)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, path)
}

// counts adapts the live stores for the status server.
type counts struct {
	sessions *session.Store
	users    *user.Registry
}

func (c counts) Sessions() int { return len(c.sessions.IDs()) }
func (c counts) Users() int    { return len(c.users.List()) }

func serve(ctx context.Context, cfg *config.Config, configPath string) error {
	L_info("parrot starting", "version", version, "config", configPath)

	users, jsonStore, err := openUsers(cfg, configPath)
	if err != nil {
		return err
	}
	defer func() { _ = users.Close() }()

	dlg, err := newDialogue(cfg)
	if err != nil {
		return err
	}
	voices, translator, err := newSpeech(cfg)
	if err != nil {
		return err
	}

	defaults := session.Defaults{
		Model:    cfg.Dialogue.Model,
		Voice:    cfg.Speech.DefaultVoice,
		Language: cfg.Speech.DefaultLanguage,
	}
	sessions := session.NewStore(defaults)

	bot, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: seconds(cfg.Telegram.PollTimeoutSec),
	})
	if err != nil {
		return err
	}
	files := media.NewTelegramDownloader(bot.Files(), cfg.Telegram.Token)

	machine, err := wizard.New(wizard.Deps{
		Router:   router.New(dlg, translator),
		Dialogue: dlg,
		Speech:   voices,
		Access:   users,
		Out:      bot,
	})
	if err != nil {
		return err
	}

	guard := dispatch.NewGuard(dispatch.GuardConfig{
		Timeout:     cfg.Dispatcher.Timeout(),
		ErrorLimit:  cfg.Dispatcher.ErrorLimit,
		MaxInFlight: cfg.Dispatcher.MaxInFlight,
	}, sessions, bot)
	norm := dispatch.NewNormalizer(dispatch.NormalizerConfig{
		ChainMarker:    cfg.Dispatcher.ChainMarker,
		ChainThreshold: cfg.Dispatcher.ChainThreshold,
	}, voices, files, bot)
	dispatcher := dispatch.New(guard, norm, machine)

	env := &commands.Env{
		Runner:   dispatcher,
		Flows:    machine,
		Dialogue: dlg,
		Users:    users,
		Defaults: defaults,
		Admins:   cfg.Admins,
		Notify:   bot,
	}
	bot.Bind(dispatcher, commands.NewManager(env), func(ctx context.Context, ev types.Event) bool {
		return commands.RegisterUser(ctx, env, ev)
	})

	snap := snapshot.New(cfg.Users.SnapshotSchedule, sessions, dlg, users)
	snap.Restore()
	if err := snap.Start(); err != nil {
		return err
	}

	if jsonStore != nil && cfg.Users.Watch {
		if err := jsonStore.Watch(ctx, users.Replace); err != nil {
			L_warn("users: watch disabled", "error", err)
		}
	}

	var srv *status.Server
	if cfg.Status.Listen != "" {
		srv = status.New(cfg.Status.Listen, counts{sessions: sessions, users: users})
		if err := srv.Start(); err != nil {
			return fmt.Errorf("status server: %w", err)
		}
	}

	if err := bot.RegisterCommands(); err != nil {
		L_warn("telegram: command menu not registered", "error", err)
	}
	bot.Start()
	L_info("parrot ready", "users", len(users.List()), "admins", len(cfg.Admins))

	<-ctx.Done()
	L_info("parrot shutting down")

	bot.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := snap.Stop(shutdownCtx); err != nil {
		L_error("snapshot: final save failed", "error", err)
	}
	if srv != nil {
		if err := srv.Stop(shutdownCtx); err != nil {
			L_warn("status: shutdown error", "error", err)
		}
	}
	return nil
}
