package cli

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/floorsolve/pkg/constraint"
	"github.com/matzehuels/floorsolve/pkg/pipeline"
	"github.com/matzehuels/floorsolve/pkg/solver"
)

// progressInterval throttles solver updates sent to the TUI.
const progressInterval = 50 * time.Millisecond

const barWidth = 40

var (
	barFullStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// SolveModel - Live solver progress
// =============================================================================

// progressMsg is a snapshot of the solver state.
type progressMsg struct {
	Iteration int
	Energy    float64
	Feasible  bool
	ByKind    map[constraint.Kind]float64
	Status    solver.Status
}

// doneMsg carries the pipeline outcome.
type doneMsg struct {
	Result *pipeline.Result
	Err    error
}

// SolveModel is the bubbletea model showing a running solve.
type SolveModel struct {
	Name          string
	MaxIterations int
	Progress      progressMsg
	Result        *pipeline.Result
	Err           error
	Aborted       bool

	start  time.Time
	cancel context.CancelFunc
}

// NewSolveModel creates a model for a solve of at most maxIter iterations.
// cancel aborts the solve when the user quits.
func NewSolveModel(name string, maxIter int, cancel context.CancelFunc) SolveModel {
	return SolveModel{Name: name, MaxIterations: maxIter, start: time.Now(), cancel: cancel}
}

func (m SolveModel) Init() tea.Cmd {
	return nil
}

func (m SolveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Aborted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case progressMsg:
		m.Progress = msg
	case doneMsg:
		m.Result, m.Err = msg.Result, msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m SolveModel) View() string {
	var b strings.Builder

	title := "Solving"
	if m.Name != "" {
		title += " " + m.Name
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n\n")

	p := m.Progress
	b.WriteString(renderBar(p.Iteration, m.MaxIterations))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %d/%d", p.Iteration, m.MaxIterations)))
	b.WriteString("\n\n")

	feasible := StyleWarning.Render("no")
	if p.Feasible {
		feasible = StyleSuccess.Render("yes")
	}
	status := string(p.Status)
	if status == "" {
		status = string(solver.StatusInitialized)
	}
	fmt.Fprintf(&b, "%s %s   %s %s   %s %s   %s %s\n",
		StyleDim.Render("energy"), StyleNumber.Render(formatFloat(p.Energy)),
		StyleDim.Render("feasible"), feasible,
		StyleDim.Render("status"), StyleValue.Render(status),
		StyleDim.Render("elapsed"), StyleValue.Render(time.Since(m.start).Round(100*time.Millisecond).String()))

	if len(p.ByKind) > 0 {
		var rows [][]string
		for _, k := range constraint.Kinds {
			if v, ok := p.ByKind[k]; ok {
				rows = append(rows, []string{string(k), formatFloat(v)})
			}
		}
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(StyleDim).
			Headers("Kind", "Energy").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return styleHeader
				}
				if col == 1 {
					return StyleNumber
				}
				return lipgloss.NewStyle()
			})
		b.WriteString("\n")
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(StyleDim.Render("q abort"))
	b.WriteString("\n")
	return b.String()
}

// renderBar draws a progress bar of barWidth cells.
func renderBar(n, total int) string {
	filled := 0
	if total > 0 {
		filled = min(barWidth, n*barWidth/total)
	}
	return barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}

// newProgressMsg copies the parts of st the view needs. The solver keeps
// mutating its own state after the callback returns.
func newProgressMsg(st solver.State) progressMsg {
	msg := progressMsg{Iteration: st.Iteration, Energy: st.Energy, Feasible: st.Feasible, Status: st.Status}
	if n := len(st.History); n > 0 {
		msg.ByKind = maps.Clone(st.History[n-1].ByKind)
	}
	return msg
}

// throttle returns a progress callback that forwards at most one state per
// interval to send. Terminal states are always forwarded.
func throttle(interval time.Duration, send func(progressMsg)) func(solver.State) {
	var last time.Time
	return func(st solver.State) {
		if !st.Done && time.Since(last) < interval {
			return
		}
		last = time.Now()
		send(newProgressMsg(st))
	}
}

// runSolveTUI executes the pipeline while a bubbletea program shows its
// progress on stderr.
func (c *CLI) runSolveTUI(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options, maxIter int) (*pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(NewSolveModel(opts.Problem.Name, maxIter, cancel), tea.WithContext(ctx), tea.WithOutput(errOut))
	opts.Progress = throttle(progressInterval, func(m progressMsg) { prog.Send(m) })
	opts.Logger = quietLogger()

	done := make(chan doneMsg, 1)
	go func() {
		res, err := runner.Execute(ctx, opts)
		done <- doneMsg{Result: res, Err: err}
		prog.Send(doneMsg{Result: res, Err: err})
	}()

	final, err := prog.Run()
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	if m, ok := final.(SolveModel); ok && (m.Result != nil || m.Err != nil) {
		return m.Result, m.Err
	}
	cancel()
	d := <-done
	return d.Result, d.Err
}
