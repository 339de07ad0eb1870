package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cheggaaa/pb/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rivo/tview"
	"go.uber.org/multierr"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/config"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/form"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/logging"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/metrics"
	"github.com/lowaak/smart-trainer/form-trainer-app/internal/trainer"
)

const barTemplate = `{{string . "exercise"}} {{string . "label"}} {{bar . }} {{counters . }} {{string . "left"}}`

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	uiLogChan := make(chan string, 256)
	params := logging.SetupParams{
		LogFileName: cfg.LogFile,
		MaxSizeMB:   10,
		MaxBackups:  3,
		Compress:    cfg.LogCompress,
		Stderr:      cfg.LogStderr && cfg.Headless, // the curses screen owns the terminal otherwise
	}
	if !cfg.Headless {
		params.UILines = uiLogChan
	}
	logger, logCloser, err := logging.Setup(params)
	must("set up logging", err)
	defer logCloser.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsManager := metrics.NewManager("form_trainer", "", reg)

	var closers []namedCloser
	if cfg.MetricsAddr != "" {
		server := metrics.NewServer(logger, cfg.MetricsAddr, reg)
		server.Start()
		closers = append(closers, namedCloser{"metrics server", server.Shutdown})
	}

	profiles, err := cfg.Profiles()
	must("load exercise profiles", err)

	sourceHandler := trainer.NewSourceHandler(trainer.SourceConfigFromConfig(cfg), logger)
	closers = append(closers, namedCloser{"pose source", sourceHandler.Close})

	code := 0
	if cfg.Headless {
		code = runHeadless(cfg, sourceHandler, metricsManager, logger)
	} else {
		runUI(cfg, profiles, sourceHandler, metricsManager, logger, uiLogChan)
	}

	if err := closeAll(closers); err != nil {
		logger.Printf("Shutdown: %v", err)
	}
	if code != 0 {
		logCloser.Close()
		os.Exit(code)
	}
}

type namedCloser struct {
	name  string
	close func() error
}

// closeAll closes in reverse order and collects every failure
func closeAll(closers []namedCloser) error {
	var err error
	for i := len(closers) - 1; i >= 0; i-- {
		if cerr := closers[i].close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s: %w", closers[i].name, cerr))
		}
	}
	return err
}

func statePath(cfg *config.Config) string {
	switch cfg.StateFile {
	case config.StateFileDisabled:
		return ""
	case "":
		return trainer.DefaultStateFile()
	default:
		return cfg.StateFile
	}
}

func runUI(cfg *config.Config, profiles []form.ExerciseProfile, sourceHandler *trainer.SourceHandler, metricsManager *metrics.Manager, logger *log.Logger, uiLogChan chan string) {
	model := trainer.NewUIModel(logger, uiLogChan, metricsManager, statePath(cfg))
	sessionManager := trainer.NewSessionManager(model, metricsManager, trainer.SessionTiming{
		FrameInterval: cfg.FrameInterval(),
		GracePeriod:   cfg.GracePeriod,
	}, logger)
	controller := trainer.NewUIController(model, sourceHandler, sessionManager, profiles, cfg.PenaltyCount(), logger)

	app := tview.NewApplication()
	view := trainer.NewCursesUIView(logger, app)
	base := trainer.NewBaseUIView(trainer.NewBaseUIViewArg{
		UIViewImpl:   view,
		UIModel:      model,
		UIController: controller,
		Logger:       logger,
	})

	if cfg.Exercise != "" {
		controller.SelectExercise(form.ExerciseID(cfg.Exercise))
	}

	runErr := base.Run()

	base.Shutdown()
	controller.Shutdown()
	model.Shutdown()
	must("run terminal UI", runErr)
}

// runHeadless runs the configured exercise without the terminal UI and
// returns the process exit code
func runHeadless(cfg *config.Config, sourceHandler *trainer.SourceHandler, metricsManager *metrics.Manager, logger *log.Logger) int {
	profile, err := cfg.Profile(form.ExerciseID(cfg.Exercise))
	must("load exercise profile", err)

	provider, err := sourceHandler.Open(profile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	session := form.NewSession(profile, cfg.PenaltyCount())
	target := session.Target()

	bar := pb.New(target.Units).
		SetTemplateString(barTemplate).
		SetWriter(os.Stderr).
		Set("exercise", profile.DisplayName).
		Set("label", form.LabelNotDetected).
		Set("left", session.Last().ProgressText())
	bar.Start()

	runner := trainer.NewHeadlessRunner(metricsManager, cfg.FrameInterval(), func(report form.TickReport) {
		bar.Set("label", report.Label)
		bar.Set("left", report.ProgressText())
		if report.Mode == form.ModeHoldDuration {
			bar.SetCurrent(int64(report.Accumulated.Seconds()))
		} else {
			bar.SetCurrent(int64(report.Achieved))
		}
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(ctx, session, provider)
	bar.Finish()

	switch {
	case result.Outcome == trainer.OutcomeCompleted:
		fmt.Printf("SUCCESS! %s completed: %d%s in %s (%d frames)\n",
			profile.DisplayName, target.Units, profile.Unit(), form.FormatMMSS(result.Report.Now), result.Frames)
		return 0
	case err != nil && !errors.Is(err, context.Canceled):
		fmt.Fprintf(os.Stderr, "%s stopped: %v\n", profile.DisplayName, err)
		return 1
	default:
		fmt.Printf("%s not completed (%s): %s left after %d frames\n",
			profile.DisplayName, result.Outcome, result.Report.ProgressText(), result.Frames)
		return 3
	}
}

func must(action string, err error) {
	if err != nil {
		panic("failed to " + action + ": " + err.Error())
	}
}
