package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scriner2110/decobrain/buhlmann"
	"github.com/scriner2110/decobrain/deco"
	"github.com/scriner2110/decobrain/gasmix"
)

var (
	planDepth      float64
	planBottomMins float64
	planGFLow      float64
	planGFHigh     float64
	planSACRate    float64
	planCoefSet    string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Simulate a square-profile dive and print the resulting ascent plan",
	Run: func(cmd *cobra.Command, args []string) {
		ccs := buhlmann.ZHL16C
		if planCoefSet == "ZHL-16B" {
			ccs = buhlmann.ZHL16B
		}

		cfg := buhlmann.DefaultDecoConfig()
		cfg.GFLow = planGFLow
		cfg.GFHigh = planGFHigh

		model := buhlmann.New(1.0, ccs, cfg)
		table := gasmix.NewTable()
		if err := table.AddGas(0, "air", 0.21, 0.79, 0.0, false); err != nil {
			logrus.Fatalf("configuring gas table: %v", err)
		}
		air, _ := table.Gas(0)

		model.SetDepth(planDepth)
		model.UpdateTissues(planBottomMins*60.0, air)

		pc := deco.DefaultPlannerConfig()
		pc.SACRate = planSACRate

		plan := deco.Calculate(model, table, pc)

		logrus.Infof("square profile: %.1fm for %.1f min, GF %.0f/%.0f (%s)", planDepth, planBottomMins, planGFLow, planGFHigh, ccs)
		if len(plan.Stops) == 0 {
			logrus.Infof("no decompression obligation; direct ascent")
		}
		for _, s := range plan.Stops {
			g, _ := table.Gas(s.GasIndex)
			logrus.Infof("stop %.0fm for %.1f min on %s", s.Depth, s.Duration, g.Name)
		}
		if plan.Truncated {
			logrus.Warnf("plan truncated at %d stops", deco.MaxDecoStops)
		}
		logrus.Infof("time to surface: %.1f min, gas required: %.0f L", plan.TTSMinutes, plan.GasRequired)
	},
}

func init() {
	planCmd.Flags().Float64Var(&planDepth, "depth", 30.0, "Planned bottom depth in metres")
	planCmd.Flags().Float64Var(&planBottomMins, "time", 20.0, "Planned bottom time in minutes")
	planCmd.Flags().Float64Var(&planGFLow, "gf-low", 30.0, "Gradient factor low, percent")
	planCmd.Flags().Float64Var(&planGFHigh, "gf-high", 85.0, "Gradient factor high, percent")
	planCmd.Flags().Float64Var(&planSACRate, "sac", 20.0, "Surface air consumption rate, litres/minute")
	planCmd.Flags().StringVar(&planCoefSet, "coefs", "ZHL-16C", "Coefficient set: ZHL-16B or ZHL-16C")
}
