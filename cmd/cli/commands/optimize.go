package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/services"
	"github.com/jakechorley/shift-optimizer/pkg/core/session"
	"github.com/jakechorley/shift-optimizer/pkg/db"
)

// OptimizeCmd creates the optimize command
func OptimizeCmd(app *AppContext) *cobra.Command {
	var (
		record    bool
		useLegacy bool
	)

	cmd := &cobra.Command{
		Use:   "optimize <scenario_file>",
		Short: "Plan and staff a scenario, printing who works where",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := services.LoadScenario(args[0])
			if err != nil {
				return err
			}

			var opt session.Optimizer = app.Engine
			if useLegacy {
				if app.Legacy == nil {
					return fmt.Errorf("--legacy needs legacy.url to be configured")
				}
				opt = app.Legacy
			}

			var store db.RunStore
			if record {
				store = app.Database
			}

			app.Logger.Debug("optimize command",
				zap.String("file", args[0]),
				zap.Bool("record", record),
				zap.Bool("legacy", useLegacy))

			result, err := services.OptimizeScenario(app.Ctx, opt, store, app.Logger, scenario)
			if err != nil {
				return err
			}

			fmt.Print(formatPlan(result.Plan))
			fmt.Println()
			fmt.Print(formatAssignments(result.Session.Posts(), result.Session.Hours(), result.Session.Labels()))
			fmt.Print(formatOutcome(result.Outcome))
			if result.Run != nil {
				fmt.Printf("Recorded run %s\n", result.Run.ID)
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().BoolVar(&record, "record", false, "Save the run to the database")
	cmd.Flags().BoolVar(&useLegacy, "legacy", false, "Optimise through the legacy optimizeShift service")

	return cmd
}
