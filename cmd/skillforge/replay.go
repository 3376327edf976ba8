package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/webloom/skillforge/pkg/browser"
	"github.com/webloom/skillforge/pkg/executor"
	"github.com/webloom/skillforge/pkg/gateway"
	"github.com/webloom/skillforge/pkg/induction"
	"github.com/webloom/skillforge/pkg/presenter"
	"github.com/webloom/skillforge/pkg/skills"
	"github.com/webloom/skillforge/pkg/validation"
)

// ReplayOptions contains all options for the replay command
type ReplayOptions struct {
	script        string
	library       string
	taskID        string
	browserServer string
	dryRun        bool
	timeout       time.Duration
}

var replayOptions = &ReplayOptions{}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a test script against the environment",
	Long: `Replay runs a test script step by step with the committed skill library
loaded, printing each action's outcome. With --dry-run the steps execute
against an in-memory environment, which smoke-tests the script and the
library without a live browser.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), replayOptions.timeout)
		defer cancel()

		mgr := gateway.NewManager()
		defer mgr.DisconnectAll(context.Background())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			presenter.Warning("Cancellation requested, shutting down...")
			mgr.DisconnectAll(context.Background())
			cancel()
		}()

		return runReplay(ctx, mgr, replayOptions)
	},
}

func init() {
	flags := replayCmd.Flags()
	flags.StringVar(&replayOptions.script, "script", "", "Path to the test script")
	flags.StringVar(&replayOptions.library, "library", "skills.go", "Path to the skill library artifact")
	flags.StringVar(&replayOptions.taskID, "task-id", "", "Task id to start on the browser server")
	flags.StringVar(&replayOptions.browserServer, "browser-server", "browser", "Tool server id hosting the browser environment")
	flags.BoolVar(&replayOptions.dryRun, "dry-run", false, "Replay against an in-memory environment")
	flags.DurationVar(&replayOptions.timeout, "timeout", validation.DefaultReplayTimeout, "Wall clock budget for the replay")

	replayCmd.MarkFlagRequired("script")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(ctx context.Context, mgr *gateway.Manager, opts *ReplayOptions) error {
	script, err := induction.LoadScript(opts.script)
	if err != nil {
		return err
	}
	if len(script.Actions) == 0 {
		return errors.Errorf("script %s holds no actions", opts.script)
	}

	lib, err := skills.Load(opts.library)
	if err != nil {
		return err
	}

	var env browser.Environment
	var messenger browser.Messenger
	if opts.dryRun {
		scripted := browser.NewScriptedEnv()
		env, messenger = scripted, scripted
	} else {
		cfg, err := gateway.ConfigFromViper()
		if err != nil {
			return err
		}
		mgr.ConnectAll(ctx, cfg)
		remote := browser.NewRemoteEnv(ctx, mgr, opts.browserServer)
		if opts.taskID != "" {
			if err := remote.StartTask(opts.taskID); err != nil {
				return err
			}
		}
		defer remote.Close()
		env, messenger = remote, remote
	}

	caps := executor.Capabilities{
		Env:         env,
		Messenger:   messenger,
		SkillSource: lib.Source(),
		Tools:       mgr.Wrappers(ctx),
	}

	engine := executor.New()
	failed := 0
	presenter.Section("Replay")
	for i, action := range script.Actions {
		res := engine.Run(ctx, action, caps)
		switch {
		case res.Err != nil:
			failed++
			presenter.Error(res.Err, fmt.Sprintf("step %d: %s", i+1, action))
		case res.AuxOutput != "":
			presenter.Info(fmt.Sprintf("step %d: %s\n  %s", i+1, action, res.AuxOutput))
		default:
			presenter.Info(fmt.Sprintf("step %d: %s", i+1, action))
		}
		if ctx.Err() != nil {
			return errors.Errorf("replay exceeded the %s wall clock", opts.timeout)
		}
	}

	if failed > 0 {
		return errors.Errorf("%d of %d steps failed", failed, len(script.Actions))
	}
	presenter.Success(fmt.Sprintf("All %d steps succeeded", len(script.Actions)))
	return nil
}
