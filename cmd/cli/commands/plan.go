package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/shiftgrid"
)

// PlanCmd creates the plan command
func PlanCmd(app *AppContext) *cobra.Command {
	var in shiftgrid.Input

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the shift grid for an operating window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("plan command",
				zap.String("start", in.StartTime),
				zap.String("end", in.EndTime),
				zap.Int("posts", in.PostCount),
				zap.Int("staff", in.StaffCount),
				zap.Float64("rest", in.MinimumTotalRestTime))

			result := shiftgrid.Plan(in)
			fmt.Print(formatPlan(result))
			if !result.IsFeasible {
				return fmt.Errorf("plan is not feasible")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in.StartTime, "start", "", "Opening time (HH:MM)")
	cmd.Flags().StringVar(&in.EndTime, "end", "", "Closing time (HH:MM)")
	cmd.Flags().IntVar(&in.PostCount, "posts", 0, "Number of posts to staff")
	cmd.Flags().IntVar(&in.StaffCount, "staff", 0, "Number of staff available")
	cmd.Flags().Float64Var(&in.MinimumTotalRestTime, "rest", 0, "Minimum total rest per worker in hours")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}
