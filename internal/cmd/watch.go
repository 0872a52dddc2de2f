package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jfelton/stagehand/internal/config"
	"github.com/jfelton/stagehand/internal/plan"
	"github.com/jfelton/stagehand/internal/scheduler"
	"github.com/jfelton/stagehand/internal/tracker"
	"github.com/jfelton/stagehand/internal/util"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of plan progress",
	Long: `Watch renders plan progress in the terminal and refreshes whenever
the state file changes. Press q to quit.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir, err := stateDir(cfg)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: atomic saves replace the file
	// by rename, which drops a watch on the file itself.
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	m := watchModel{
		cfg:      cfg,
		stateDir: dir,
		watcher:  watcher,
	}
	m.refresh()

	_, err = tea.NewProgram(m).Run()
	return err
}

// stateChangedMsg signals that the state file was rewritten.
type stateChangedMsg struct{}

type watchModel struct {
	cfg      *config.Config
	stateDir string
	watcher  *fsnotify.Watcher

	summary scheduler.Summary
	snap    *plan.Snapshot
	loadErr error
}

func (m watchModel) Init() tea.Cmd {
	return m.waitForChange()
}

// waitForChange blocks on watcher events until the state file changes,
// debouncing bursts of writes into a single refresh.
func (m watchModel) waitForChange() tea.Cmd {
	return func() tea.Msg {
		target := tracker.StatePath(m.stateDir)
		for {
			select {
			case event, ok := <-m.watcher.Events:
				if !ok {
					return tea.Quit()
				}
				if filepath.Clean(event.Name) != filepath.Clean(target) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				time.Sleep(m.cfg.Watch.Debounce())
				drainEvents(m.watcher)
				return stateChangedMsg{}
			case _, ok := <-m.watcher.Errors:
				if !ok {
					return tea.Quit()
				}
			}
		}
	}
}

func drainEvents(w *fsnotify.Watcher) {
	for {
		select {
		case <-w.Events:
		default:
			return
		}
	}
}

func (m *watchModel) refresh() {
	tr, err := tracker.Load(m.stateDir, m.cfg.Scheduler.MaxRetries)
	if err != nil {
		m.loadErr = err
		return
	}
	m.loadErr = nil

	snap := tr.Snapshot()
	res, err := resolveGraph(snap)
	if err != nil {
		m.loadErr = err
		return
	}
	m.snap = snap
	m.summary = scheduler.Summarize(snap, res, schedulerConfig(m.cfg))
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case stateChangedMsg:
		m.refresh()
		return m, m.waitForChange()
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("stagehand watch"))
	b.WriteString("\n\n")

	if m.loadErr != nil {
		b.WriteString(failedStyle.Render(fmt.Sprintf("waiting for state: %v", m.loadErr)))
		b.WriteString("\n\nPress q to quit.\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Tasks: %d   Complete: %.0f%%   Critical path: %d\n",
		m.summary.Total, m.summary.CompletionPct, m.summary.CriticalPathLength))
	if m.summary.HasCycle {
		b.WriteString(failedStyle.Render("Dependency cycle detected.") + "\n")
	}
	b.WriteString("\n")

	for _, phase := range m.snap.Phases() {
		tasks := m.snap.TasksInPhase(phase)
		satisfied := 0
		for _, t := range tasks {
			if t.Status.IsSatisfied() {
				satisfied++
			}
		}
		b.WriteString(headerStyle.Render(fmt.Sprintf("Phase %d (%d/%d)", phase, satisfied, len(tasks))))
		b.WriteString("\n")
		for _, t := range tasks {
			line := fmt.Sprintf("  %-8s %-12s %s", t.ID, t.Status, util.TruncateString(t.Description, descriptionWidth))
			b.WriteString(statusStyle(t.Status).Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(m.summary.ReadyIDs) > 0 {
		b.WriteString(fmt.Sprintf("Ready: %s\n", strings.Join(m.summary.ReadyIDs, ", ")))
	}
	b.WriteString("\nPress q to quit.\n")
	return b.String()
}
