package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/floorsolve/pkg/constraint"
	"github.com/matzehuels/floorsolve/pkg/problem"
	"github.com/matzehuels/floorsolve/pkg/refine"
)

// checkReport is the JSON output of the check command.
type checkReport struct {
	Name        string        `json:"name,omitempty"`
	ProblemHash string        `json:"problem_hash"`
	Assets      int           `json:"assets"`
	Free        int           `json:"free"`
	Constraints int           `json:"constraints"`
	Energy      float64       `json:"energy"`
	Feasible    bool          `json:"feasible"`
	Violations  refine.Report `json:"violations"`
}

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	var (
		asJSON bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "check [problem.toml]",
		Short: "Validate a problem file and report violations of its current poses",
		Long: `Check builds the scene and constraints of a problem file without solving it.
Invalid geometry, unknown assets or anchors and malformed constraints are
reported as errors. The current poses are then evaluated and every hard
constraint violation and walkway shortfall is listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := checkProblem(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				if err := writeJSON(report); err != nil {
					return err
				}
			} else {
				printCheck(args[0], report)
			}
			if strict && !report.Violations.Empty() {
				return fmt.Errorf("%d asset(s) violate constraints", len(report.Violations.Entries))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when anything is violated")

	return cmd
}

func checkProblem(path string) (*checkReport, error) {
	p, err := problem.Load(path)
	if err != nil {
		return nil, err
	}
	inst, err := p.Build()
	if err != nil {
		return nil, err
	}
	hash, err := p.Hash()
	if err != nil {
		return nil, err
	}

	energy, err := constraint.Energy(inst.Constraints, inst.Scene)
	if err != nil {
		return nil, err
	}
	so := p.Solver
	so.SetDefaults()
	feasible, err := constraint.Feasible(inst.Constraints, inst.Scene, so.Tolerance)
	if err != nil {
		return nil, err
	}
	report, err := refine.Detect(inst.Scene, inst.Constraints, p.Refine)
	if err != nil {
		return nil, err
	}
	return &checkReport{
		Name:        p.Name,
		ProblemHash: hash,
		Assets:      len(inst.Scene.IDs()),
		Free:        len(inst.Scene.Free()),
		Constraints: len(inst.Constraints),
		Energy:      energy,
		Feasible:    feasible,
		Violations:  report,
	}, nil
}

func printCheck(path string, r *checkReport) {
	if r.Violations.Empty() {
		printSuccess("%s is valid, no violations", StyleTitle.Render(path))
	} else {
		printWarning("%s is valid, %d asset(s) in violation", path, len(r.Violations.Entries))
	}
	printStats(r.Assets, r.Free, r.Constraints)
	printKeyValue("energy", formatFloat(r.Energy))
	printKeyValue("hash", r.ProblemHash[:12])
	if !r.Violations.Empty() {
		fmt.Fprintln(out)
		printReport(r.Violations)
		fmt.Fprintln(out)
		printNextStep("Repair with", fmt.Sprintf("%s solve %s", appName, path))
	}
}
