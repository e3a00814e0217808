package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/floorsolve/pkg/archive"
	"github.com/matzehuels/floorsolve/pkg/pipeline"
	"github.com/matzehuels/floorsolve/pkg/refine"
	"github.com/matzehuels/floorsolve/pkg/solver"
)

// out receives command output; errOut receives interactive progress.
var (
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for failures.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconSuccess.Render(iconSuccess)+" "+msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconError.Render(iconError)+" "+msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconInfo.Render(iconInfo)+" "+msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, "  "+StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Fprintln(out, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(out, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(out, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// =============================================================================
// Solve Output
// =============================================================================

// printStats prints problem statistics on a single line, followed by the
// already styled tags.
func printStats(assets, free, constraints int, tags ...string) {
	parts := []string{
		StyleDim.Render(fmt.Sprintf("%d assets", assets)),
		StyleDim.Render(fmt.Sprintf("%d free", free)),
		StyleDim.Render(fmt.Sprintf("%d constraints", constraints)),
	}
	parts = append(parts, tags...)
	fmt.Fprintln(out, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

// cacheTag renders whether a result came from the cache.
func cacheTag(cached bool) string {
	if cached {
		return styleCached.Render(iconCached)
	}
	return styleComputed.Render(iconFresh)
}

// printResult prints the outcome of a pipeline run.
func printResult(res *pipeline.Result) {
	label := string(res.Status)
	switch {
	case res.Status == solver.StatusConverged && res.Feasible:
		printSuccess("%s %s", titleOf(res), StyleSuccess.Render(label))
	case res.Feasible:
		printWarning("%s %s", titleOf(res), label)
	default:
		printError("%s %s, infeasible", titleOf(res), StyleError.Render(label))
	}
	printStats(res.Stats.Assets, res.Stats.Free, res.Stats.Constraints, cacheTag(res.CacheInfo.SolveHit))
	printKeyValue("run", res.RunID)
	printKeyValue("iterations", strconv.Itoa(res.Iterations))
	printKeyValue("energy", formatFloat(res.Energy))
	if r := res.Refinement; r != nil && !r.Noop {
		printKeyValue("refined", fmt.Sprintf("%d attempt(s), %d asset(s)", len(r.Attempts), len(r.Initial.Entries)))
	}
	if !res.Residual.Empty() {
		fmt.Fprintln(out)
		printReport(res.Residual)
	}
}

func titleOf(res *pipeline.Result) string {
	if res.Name != "" {
		return StyleTitle.Render(res.Name)
	}
	return StyleTitle.Render("layout")
}

// printReport prints a violation report as a table.
func printReport(r refine.Report) {
	var rows [][]string
	for _, e := range r.Entries {
		for i, v := range e.Violations {
			asset := e.Asset
			if i > 0 {
				asset = ""
			}
			hard := ""
			if v.Hard {
				hard = "hard"
			}
			rows = append(rows, []string{asset, v.Constraint, string(v.Kind), formatFloat(v.Cost), hard})
		}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("Asset", "Constraint", "Kind", "Cost", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if col == 0 {
				return StyleValue.Bold(true)
			}
			return StyleDim
		})
	fmt.Fprintln(out, t.Render())
}

// printRuns prints archived runs as a table.
func printRuns(runs []archive.Run) {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		cached := ""
		if r.CacheHit {
			cached = iconCached
		}
		rows[i] = []string{
			r.ID,
			r.Name,
			r.Status,
			strconv.FormatBool(r.Feasible),
			formatFloat(r.Energy),
			strings.Join(r.Residual, ","),
			r.CreatedAt.Local().Format(time.DateTime),
			cached,
		}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("Run", "Name", "Status", "Feasible", "Energy", "Residual", "Created", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return lipgloss.NewStyle()
		})
	fmt.Fprintln(out, t.Render())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
