package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scriner2110/decobrain/dcconfig"
)

var configPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or initialise the persisted device configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the factory-default configuration to disk",
	Run: func(cmd *cobra.Command, args []string) {
		if err := dcconfig.Save(configPath, dcconfig.Default()); err != nil {
			logrus.Fatalf("writing default config: %v", err)
		}
		logrus.Infof("wrote factory-default configuration to %s", configPath)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration at the given path",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := dcconfig.Load(configPath)
		if err != nil {
			logrus.Fatalf("loading config: %v", err)
		}
		logrus.Infof("units=%s gf=%.0f/%.0f coefs=%s ascent-rate=%.0fm/min safety-stop=%.0fm/%.0fs",
			cfg.Display.Units, cfg.Deco.GFLow, cfg.Deco.GFHigh, cfg.Deco.CoefSet,
			cfg.Deco.AscentRate, cfg.Deco.SafetyStopDepth, cfg.Deco.SafetyStopTimeSeconds)
	},
}

func init() {
	configCmd.PersistentFlags().StringVar(&configPath, "path", "./decobrain.yaml", "Path to the configuration file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
