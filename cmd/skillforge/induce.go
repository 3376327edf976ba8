package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/webloom/skillforge/pkg/browser"
	"github.com/webloom/skillforge/pkg/gateway"
	"github.com/webloom/skillforge/pkg/induction"
	"github.com/webloom/skillforge/pkg/judge"
	"github.com/webloom/skillforge/pkg/logger"
	"github.com/webloom/skillforge/pkg/presenter"
	"github.com/webloom/skillforge/pkg/skills"
	"github.com/webloom/skillforge/pkg/trajectory"
	"github.com/webloom/skillforge/pkg/validation"
)

// InduceOptions contains all options for the induce command
type InduceOptions struct {
	website       string
	template      string
	resultIDs     []string
	systemMsg     string
	instruction   string
	fewShot       string
	model         string
	judgeModel    string
	samples       int
	temperature   float64
	scoring       string
	library       string
	resultsDir    string
	testsDir      string
	outDir        string
	browserServer string
	replayTimeout time.Duration
}

var induceOptions = &InduceOptions{}

var induceCmd = &cobra.Command{
	Use:   "induce",
	Short: "Induce reusable skills from recorded trajectories",
	Long: `Induce loads the recorded trajectories of the given result ids, prompts the
model to generalize them into reusable functions, replays the model's test
scripts against the environment, and commits the functions that survive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
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

		overrides := map[string]string{}
		cmd.Flags().Visit(func(f *pflag.Flag) {
			overrides[f.Name] = f.Value.String()
		})
		logger.G(ctx).WithField("flags", overrides).Debug("induce invoked")

		return runInduce(ctx, mgr, induceOptions)
	},
}

func init() {
	flags := induceCmd.Flags()
	flags.StringVar(&induceOptions.website, "website", "", "Website/domain the tasks belong to")
	flags.StringVar(&induceOptions.template, "template", "", "Task family template the examples instantiate (defaults to the website)")
	flags.StringSliceVar(&induceOptions.resultIDs, "result-ids", nil, "Recorded result ids to induce from")
	flags.StringVar(&induceOptions.systemMsg, "system-msg", "", "Path to the system prompt artifact")
	flags.StringVar(&induceOptions.instruction, "instruction", "", "Path to the instruction prompt artifact")
	flags.StringVar(&induceOptions.fewShot, "few-shot", "", "Path to the few-shot prompt artifact")
	flags.StringVar(&induceOptions.model, "model", "", "Induction model (defaults to the provider default)")
	flags.StringVar(&induceOptions.judgeModel, "judge-model", "", "Judge model when --scoring judge")
	flags.IntVar(&induceOptions.samples, "samples", 1, "Number of responses to sample")
	flags.Float64Var(&induceOptions.temperature, "temperature", 1.0, "Sampling temperature")
	flags.StringVar(&induceOptions.scoring, "scoring", "", "Scoring policy: oracle, judge, or execution")
	flags.StringVar(&induceOptions.library, "library", "", "Path to the skill library artifact (defaults to skills/<website>.go)")
	flags.StringVar(&induceOptions.resultsDir, "results-dir", "results", "Directory holding recorded trajectories")
	flags.StringVar(&induceOptions.testsDir, "tests-dir", "tests", "Directory receiving test script artifacts")
	flags.StringVar(&induceOptions.outDir, "out-dir", "responses", "Directory receiving raw model responses")
	flags.StringVar(&induceOptions.browserServer, "browser-server", "browser", "Tool server id hosting the browser environment")
	flags.DurationVar(&induceOptions.replayTimeout, "replay-timeout", validation.DefaultReplayTimeout, "Wall clock budget per test replay")

	induceCmd.MarkFlagRequired("website")
	induceCmd.MarkFlagRequired("result-ids")
	induceCmd.MarkFlagRequired("scoring")
	rootCmd.AddCommand(induceCmd)
}

func runInduce(ctx context.Context, mgr *gateway.Manager, opts *InduceOptions) error {
	log := logger.G(ctx)

	policy, err := validation.ParsePolicy(opts.scoring)
	if err != nil {
		return err
	}

	if opts.template == "" {
		opts.template = opts.website
	}
	if opts.library == "" {
		opts.library = filepath.Join("skills", opts.website+".go")
	}
	if err := os.MkdirAll(filepath.Dir(opts.library), 0o755); err != nil {
		return errors.Wrap(err, "failed to create library directory")
	}

	lib, err := skills.Load(opts.library)
	if err != nil {
		return err
	}
	store := trajectory.NewStore(opts.resultsDir)

	var examples []induction.Example
	var tasks []validation.Task
	for _, id := range opts.resultIDs {
		traj, err := store.Load(id)
		if err != nil {
			return err
		}
		actions := trajectory.Clean(traj)
		if len(actions) == 0 {
			log.WithField("result_id", id).Warn("no usable steps, skipping")
			continue
		}
		examples = append(examples, induction.Example{
			TaskID:      traj.TaskID,
			Instruction: traj.Instruction,
			Actions:     actions,
		})
		tasks = append(tasks, validation.Task{ID: traj.TaskID, Instruction: traj.Instruction})
	}
	if len(examples) == 0 {
		presenter.Warning("No usable trajectories; nothing to induce")
		return nil
	}

	gen, err := induction.NewAnthropicGenerator(opts.model)
	if err != nil {
		return err
	}
	var evaluator validation.Evaluator
	if policy == validation.JudgeVerdict {
		j, err := judge.New(opts.judgeModel)
		if err != nil {
			return err
		}
		evaluator = j
	}

	gwCfg, err := gateway.ConfigFromViper()
	if err != nil {
		return err
	}
	mgr.ConnectAll(ctx, gwCfg)

	engine := induction.NewEngine(gen, induction.PromptArtifacts{
		SystemPath:      opts.systemMsg,
		InstructionPath: opts.instruction,
		FewShotPath:     opts.fewShot,
	})

	var libraryDoc string
	if lib.Len() > 0 {
		libraryDoc = lib.Describe()
	}
	// one response directory per run, so repeated runs never overwrite
	runID := uuid.NewString()
	outDir := filepath.Join(opts.outDir, runID)
	log.WithField("run_id", runID).Info("starting induction")

	responses, err := engine.Induce(ctx, induction.Request{
		Template:    opts.template,
		Examples:    examples,
		LibraryDoc:  libraryDoc,
		Existing:    lib.Names(),
		NumSamples:  opts.samples,
		Temperature: opts.temperature,
		OutDir:      outDir,
	})
	if err != nil {
		return err
	}

	runner, err := validation.NewRunner(validation.Config{
		Library:       lib,
		LibraryPath:   opts.library,
		TestsDir:      opts.testsDir,
		Results:       store,
		Sessions:      browserSessions(mgr, opts.browserServer),
		Tools:         mgr.Wrappers(ctx),
		Policy:        policy,
		Judge:         evaluator,
		ReplayTimeout: opts.replayTimeout,
	})
	if err != nil {
		return err
	}

	report, err := runner.Validate(ctx, responses, tasks)
	if err != nil {
		return err
	}

	presenter.Section("Validation")
	for _, outcome := range report.Outcomes {
		presenter.Info(fmt.Sprintf("response %d: %s %s", outcome.Response, outcome.State, outcome.Reason))
	}
	if report.Committed {
		committed := report.Outcomes[len(report.Outcomes)-1]
		presenter.Success(fmt.Sprintf("Committed %s at library version %d",
			strings.Join(committed.NewNames, ", "), report.Version))
	} else {
		presenter.Warning("No response survived validation; library unchanged")
	}
	return nil
}

// browserSessions opens one remote browser episode per validated task.
func browserSessions(mgr *gateway.Manager, serverID string) validation.SessionFactory {
	return func(ctx context.Context, task validation.Task) (validation.Session, error) {
		env := browser.NewRemoteEnv(ctx, mgr, serverID)
		if err := env.StartTask(task.ID); err != nil {
			return nil, errors.Wrap(err, "browser session unavailable")
		}
		return env, nil
	}
}
