package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
	"github.com/jakechorley/shift-optimizer/pkg/core/services"
)

// LPCmd creates the lp command
func LPCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lp <scenario_file>",
		Short: "Print the integer program for a scenario in LP format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := services.LoadScenario(args[0])
			if err != nil {
				return err
			}

			sess, _, err := services.BuildSession(scenario, app.Logger)
			if err != nil {
				return err
			}

			req := sess.Request()
			tensor := optimizer.BuildTensor(req.Posts, req.Hours, req.Workers)
			m, err := optimizer.BuildModel(tensor, len(req.Posts), len(req.Hours))
			if err != nil {
				return fmt.Errorf("failed to build model: %w", err)
			}

			return lpmodel.Write(os.Stdout, m)
		},
	}
}
