package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scriner2110/decobrain/buhlmann"
	"github.com/scriner2110/decobrain/ccr"
	"github.com/scriner2110/decobrain/divephase"
	"github.com/scriner2110/decobrain/gasmix"
	"github.com/scriner2110/decobrain/logbook"
	"github.com/scriner2110/decobrain/orchestrator"
	"github.com/scriner2110/decobrain/oxtox"
	"github.com/scriner2110/decobrain/sampler"
)

var (
	replayXMLPath    string
	replayCSVPath    string
	replayStoreDir   string
	replayDiveNumber uint32
)

const replaySurfacePressureMbar = 1013.25

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded, imported, or synthetic dive profile through the tissue model",
	Run: func(cmd *cobra.Command, args []string) {
		src, diveNumber, startTimestamp, err := loadReplaySource()
		if err != nil {
			logrus.Fatalf("loading profile: %v", err)
		}

		model := buhlmann.New(replaySurfacePressureMbar/1000.0, buhlmann.ZHL16C, buhlmann.DefaultDecoConfig())
		table := gasmix.NewTable()
		if err := table.AddGas(0, "air", 0.21, 0.79, 0.0, false); err != nil {
			logrus.Fatalf("configuring gas table: %v", err)
		}
		phase := divephase.New(divephase.DefaultConfig())
		cns := oxtox.New()
		smp := sampler.New(1.0, diveNumber, startTimestamp, nil)
		orch := orchestrator.New(orchestrator.ModeOpenCircuit, model, table, ccr.New(), phase, cns, smp, replaySurfacePressureMbar)

		const dt = 1.0
		for !src.Done() {
			orch.Tick(dt, src)
		}

		st := orch.State()
		logrus.Infof("dive %d: max depth %.1fm, ceiling %.1fm, CNS %.0f%%, OTU %.0f",
			diveNumber, st.MaxDepth, st.CeilingMetres, st.CNSPercent, st.OTU)
	},
}

// loadReplaySource resolves the --csv/--xml/--store flags (in that
// priority order) into an orchestrator.ReplaySource, along with the
// dive number and start timestamp to seed the sampler with.
func loadReplaySource() (*orchestrator.ReplaySource, uint32, uint32, error) {
	if replayCSVPath != "" {
		f, err := os.Open(replayCSVPath)
		if err != nil {
			return nil, 0, 0, err
		}
		defer f.Close()
		src, err := orchestrator.NewReplaySourceFromCSV(f, replaySurfacePressureMbar)
		return src, replayDiveNumber, 0, err
	}

	var (
		profile *sampler.Profile
		err     error
	)
	if replayXMLPath != "" {
		profile, err = logbook.ImportShearwaterXML(replayXMLPath)
	} else {
		var store *logbook.FileStore
		store, err = logbook.New(replayStoreDir)
		if err == nil {
			profile, err = store.LoadDive(replayDiveNumber)
		}
	}
	if err != nil {
		return nil, 0, 0, err
	}
	return orchestrator.NewReplaySource(profile, replaySurfacePressureMbar), profile.DiveNumber, profile.StartTimestamp, nil
}

func init() {
	replayCmd.Flags().StringVar(&replayCSVPath, "csv", "", "Path to a synthetic time_seconds,depth_m,temperature_c CSV profile")
	replayCmd.Flags().StringVar(&replayXMLPath, "xml", "", "Path to a Shearwater-style XML dive log to import instead of the local store")
	replayCmd.Flags().StringVar(&replayStoreDir, "store", "./logbook", "Directory holding locally recorded dives")
	replayCmd.Flags().Uint32Var(&replayDiveNumber, "dive", 1, "Dive number to replay from the local store")
}
