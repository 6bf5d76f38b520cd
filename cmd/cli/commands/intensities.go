package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/intensity"
)

// IntensitiesCmd creates the intensities command
func IntensitiesCmd(app *AppContext) *cobra.Command {
	var (
		params     intensity.Params
		clearCache bool
		showStats  bool
	)

	cmd := &cobra.Command{
		Use:   "intensities",
		Short: "List the rest intensities that give distinct shift lengths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := app.Explorer.Cache()

			if clearCache {
				if err := cache.Clear(app.Ctx); err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
				fmt.Println("✓ Intensity cache cleared")
			}

			if params.StartTime != "" || params.EndTime != "" {
				app.Logger.Debug("intensities command", zap.String("key", params.Key()))
				result := app.Explorer.GetDistinguishedIntensities(app.Ctx, params)
				fmt.Print(formatIntensities(result))
			}

			if showStats {
				stats, err := cache.Stats(app.Ctx)
				if err != nil {
					return fmt.Errorf("failed to read cache stats: %w", err)
				}
				fmt.Printf("Cache: %d entries, %d hits, %d misses\n", stats.Size, stats.Hits, stats.Misses)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&params.StartTime, "start", "", "Opening time (HH:MM)")
	cmd.Flags().StringVar(&params.EndTime, "end", "", "Closing time (HH:MM)")
	cmd.Flags().IntVar(&params.PostCount, "posts", 0, "Number of posts to staff")
	cmd.Flags().IntVar(&params.StaffCount, "staff", 0, "Number of staff available")
	cmd.Flags().BoolVar(&clearCache, "clear", false, "Clear the intensity cache first")
	cmd.Flags().BoolVar(&showStats, "stats", false, "Print cache statistics")
	cmd.MarkFlagsRequiredTogether("start", "end")

	return cmd
}
