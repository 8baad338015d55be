package main

import (
	"fmt"
	"time"

	"github.com/phanxgames/compositor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Dispatch a generated node tree against a headless scene",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, _ := cmd.Flags().GetInt("nodes")
		fanout, _ := cmd.Flags().GetInt("fanout")
		frames, _ := cmd.Flags().GetInt("frames")
		if nodes < 1 || fanout < 1 || frames < 1 {
			return fmt.Errorf("nodes, fanout and frames must be positive")
		}

		reg := prometheus.NewRegistry()
		scene := compositor.NewScene()
		comp, err := compositor.CreateCompositor(scene, compositor.CompositionModeLibrary,
			compositor.WithMetrics(reg))
		if err != nil {
			return err
		}
		defer comp.Close()

		root := comp.NewRootNode()
		defer root.Reset()
		root.Get().AddToRoot()

		all := []*compositor.DisplayNode{root.Get()}
		for i := 0; i < nodes; i++ {
			parent := all[i/fanout]
			ref := comp.NewNode(compositor.NodeSimple)
			n := ref.Get()
			n.SetProperty(compositor.PropWidth, 10)
			n.SetProperty(compositor.PropHeight, 10)
			parent.AddSubnode(n, nil, nil)
			ref.Reset()
			all = append(all, n)
		}

		start := time.Now()
		b, err := comp.Dispatch()
		if err != nil {
			return err
		}
		build := time.Since(start)

		start = time.Now()
		for f := 0; f < frames; f++ {
			for i, n := range all[1:] {
				n.SetProperty(compositor.PropPositionX, float64((i+f)%100))
			}
			if _, err := comp.Dispatch(); err != nil {
				return err
			}
		}
		perFrame := time.Since(start) / time.Duration(frames)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "build: %d movements, %d properties in %v\n", b.Movements, b.Properties, build)
		fmt.Fprintf(out, "frame: %d property writes in %v\n", nodes, perFrame)
		fmt.Fprintf(out, "host elements: %d\n", scene.Elements())

		families, err := reg.Gather()
		if err != nil {
			return err
		}
		for _, mf := range families {
			for _, m := range mf.GetMetric() {
				var v float64
				switch {
				case m.GetCounter() != nil:
					v = m.GetCounter().GetValue()
				case m.GetHistogram() != nil:
					v = float64(m.GetHistogram().GetSampleCount())
				}
				label := ""
				for _, lp := range m.GetLabel() {
					label += fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
				}
				fmt.Fprintf(out, "%s%s %g\n", mf.GetName(), label, v)
			}
		}
		return nil
	},
}

func init() {
	benchCmd.Flags().Int("nodes", 1000, "Number of nodes to generate")
	benchCmd.Flags().Int("fanout", 8, "Children per node")
	benchCmd.Flags().Int("frames", 60, "Property dispatches to time")
	rootCmd.AddCommand(benchCmd)
}
