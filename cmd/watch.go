package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/adreport-cli/internal/kpi"
	"github.com/KaramelBytes/adreport-cli/internal/report"
	"github.com/KaramelBytes/adreport-cli/internal/session"
)

var (
	watchDebounce   time.Duration
	watchNoGenerate bool
	watchLayout     string
	watchPreset     string
	watchGoal       string
	watchIssues     string
	watchTasks      string
	watchProvider   string
	watchModel      string
)

// workbookWatcher re-extracts a workbook whenever it is saved and keeps the
// latest summary in a session. A summary that finishes after a newer save
// is dropped by the session.
type workbookWatcher struct {
	path       string
	extractor  *kpi.Extractor
	gate       kpi.Gate
	summarizer *report.Summarizer // nil: extraction only
	rc         report.Context
	sess       *session.Session
	log        *zap.Logger

	outMu sync.Mutex
	out   io.Writer

	genMu     sync.Mutex
	cancelGen context.CancelFunc
}

func (w *workbookWatcher) printf(format string, a ...any) {
	w.outMu.Lock()
	defer w.outMu.Unlock()
	fmt.Fprintf(w.out, format, a...)
}

// reload extracts the workbook and, when it passes the gate, starts a
// summary on g. Any generation still running for the previous save is
// cancelled.
func (w *workbookWatcher) reload(ctx context.Context, g *errgroup.Group) {
	res, err := extractFile(w.extractor, w.path)
	if err != nil {
		// Excel writes in several steps; the next event usually succeeds.
		w.printf("⚠ Warning: could not read %s: %v\n", filepath.Base(w.path), err)
		return
	}
	gateErr := w.gate.Check(res.Record)
	st := w.sess.Load(w.path, res, gateErr)

	w.genMu.Lock()
	if w.cancelGen != nil {
		w.cancelGen()
		w.cancelGen = nil
	}
	w.genMu.Unlock()

	w.outMu.Lock()
	fmt.Fprintf(w.out, "\n[%s] #%d %s\n", time.Now().Format("15:04:05"), st.Seq, filepath.Base(w.path))
	printExtraction(w.out, res)
	w.outMu.Unlock()

	if gateErr != nil {
		w.printf("✗ %s\n", kpi.StaleWorkbookMessage)
		return
	}
	if w.summarizer == nil {
		return
	}

	ticket, rec, err := w.sess.Begin()
	if err != nil {
		w.log.Debug("not generating", zap.Error(err))
		return
	}
	genCtx, cancel := context.WithCancel(ctx)
	w.genMu.Lock()
	w.cancelGen = cancel
	w.genMu.Unlock()

	g.Go(func() error {
		defer cancel()
		st, applied, err := w.sess.Generate(genCtx, ticket, rec, w.summarizer, w.rc)
		switch {
		case !applied:
			w.log.Debug("summary superseded by a newer save", zap.Uint64("load", ticket.Seq))
		case err != nil:
			w.printf("✗ #%d summary failed: %v\n", ticket.Seq, describeGenerateError(err))
		default:
			w.printf("\n=== Summary #%d ===\n%s\n", ticket.Seq, st.Summary)
		}
		return nil
	})
}

// run watches the directory (editors replace files rather than writing in
// place) and reloads after events for the file settle for debounce.
func (w *workbookWatcher) run(ctx context.Context, fw *fsnotify.Watcher, debounce time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)
	target := filepath.Clean(w.path)

	g.Go(func() error {
		w.reload(ctx, g)

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				w.log.Debug("change", zap.String("op", ev.Op.String()))
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				w.reload(ctx, g)
			case err, ok := <-fw.Errors:
				if !ok {
					return nil
				}
				w.log.Warn("watch error", zap.Error(err))
			}
		}
	})
	return g.Wait()
}

var watchCmd = &cobra.Command{
	Use:   "watch <file.xlsx>",
	Short: "Re-extract and regenerate the summary every time the workbook is saved",
	Example: `  adreport watch 2024-05.xlsx --issues "CPA高騰"
  adreport watch 2024-05.xlsx --no-generate`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			return err
		}
		ex, err := newExtractor(cfg, watchLayout)
		if err != nil {
			return err
		}
		w := &workbookWatcher{
			path:      path,
			extractor: ex,
			gate:      newGate(cfg),
			sess:      session.New(logger),
			log:       logger,
			out:       cmd.OutOrStdout(),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !watchNoGenerate {
			rc, err := resolveContext(ctx, cfg, contextOptions{
				PresetID: watchPreset, Goal: watchGoal, Issues: watchIssues, Tasks: watchTasks,
			})
			if err != nil {
				return err
			}
			rt, _, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: watchProvider})
			if err != nil {
				return err
			}
			w.rc = rc
			w.summarizer = &report.Summarizer{
				Runtime: rt,
				Gate:    w.gate,
				Model:   selectModel(cfg, watchModel),
				Logger:  logger,
			}
			if cfg != nil {
				w.summarizer.Temperature = cfg.Temperature
				w.summarizer.MaxTokens = cfg.MaxTokens
			}
		}

		fw, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer fw.Close()
		if err := fw.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "👀 Watching %s (Ctrl+C to stop)\n", path)
		return w.run(ctx, fw, watchDebounce)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "wait this long after the last change before reloading")
	watchCmd.Flags().BoolVar(&watchNoGenerate, "no-generate", false, "only extract; never call the model")
	watchCmd.Flags().StringVar(&watchLayout, "layout", "", "YAML layout override")
	watchCmd.Flags().StringVar(&watchPreset, "preset", "", "load goal/issues/tasks from a saved preset")
	watchCmd.Flags().StringVar(&watchGoal, "goal", "", "account goal")
	watchCmd.Flags().StringVar(&watchIssues, "issues", "", "current issues")
	watchCmd.Flags().StringVar(&watchTasks, "tasks", "", "tasks carried out this month")
	watchCmd.Flags().StringVar(&watchProvider, "provider", "", "runtime: gemini (REST) or genai (SDK)")
	watchCmd.Flags().StringVar(&watchModel, "model", "", "override model")
}
