package main

import (
	"math"

	"github.com/phanxgames/compositor"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open a window showing a demo display tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		scene := compositor.NewScene()
		comp, err := compositor.CreateCompositor(scene, cfg.Mode, compositor.WithConfig(cfg))
		if err != nil {
			return err
		}
		defer comp.Close()

		d := buildDemo(comp)
		defer d.release()

		rc := compositor.RunConfigFrom(cfg)
		rc.ClearColor = compositor.Color{R: 0.118, G: 0.118, B: 0.157, A: 1}
		rc.Update = func(dt float64) error {
			d.update(dt)
			if comp.Mode() == compositor.CompositionModeLibrary {
				_, err := comp.Dispatch()
				return err
			}
			return nil
		}
		return compositor.Run(comp, scene, rc)
	},
}

func init() {
	runCmd.Flags().String("mode", "default", "Composition mode: default or library")
	rootCmd.AddCommand(runCmd)
}

// demo is a root panel with a row of boxes, a label, and a pulsing box.
type demo struct {
	root  compositor.Ref[*compositor.DisplayNode]
	boxes []compositor.Ref[*compositor.DisplayNode]
	label compositor.Ref[*compositor.DisplayNode]
	t     float64
}

func buildDemo(comp *compositor.Compositor) *demo {
	d := &demo{root: comp.NewRootNode()}
	root := d.root.Get()
	root.AddToRoot()

	for i := 0; i < 5; i++ {
		box := comp.NewNode(compositor.NodeSimple)
		n := box.Get()
		n.SetProperty(compositor.PropPositionX, 40+float64(i)*110)
		n.SetProperty(compositor.PropPositionY, 120)
		n.SetProperty(compositor.PropWidth, 90)
		n.SetProperty(compositor.PropHeight, 90)
		n.SetBackgroundColor(0.3+0.15*float64(i), 0.7, 1-0.15*float64(i), 1)
		root.AddSubnode(n, nil, nil)

		fade := compositor.NewTransitionAnimation("moveIn", "fromTop")
		fade.Duration = 0.4 + 0.1*float64(i)
		fade.Easing = compositor.EaseOut
		n.AddAnimation(fade)

		d.boxes = append(d.boxes, box)
	}

	tex := comp.NewGlyphTexture()
	text := []rune("Display nodes, batched transactions, host timeline.")
	if err := tex.Get().ConstructGlyphs(compositor.DefaultFontFamily, text, len(text)); err == nil {
		tex.Get().SetFontSize(20)
		tex.Get().SetColor(1, 1, 1, 1)
		tex.Get().SetInsets(4, 8, 4, 8)
		w, h := tex.Get().Measure(560, math.Inf(1))

		d.label = comp.NewNode(compositor.NodeSimple)
		l := d.label.Get()
		l.SetProperty(compositor.PropPositionX, 40)
		l.SetProperty(compositor.PropPositionY, 40)
		l.SetProperty(compositor.PropWidth, w)
		l.SetProperty(compositor.PropHeight, h)
		l.SetContents(tex.Get(), w, h, 1)
		l.SetTopMost()
		root.AddSubnode(l, nil, nil)
	}
	tex.Reset()
	return d
}

func (d *demo) update(dt float64) {
	d.t += dt
	pulse := 0.6 + 0.4*math.Sin(d.t*2)
	d.boxes[2].Get().SetProperty(compositor.PropOpacity, pulse)
}

func (d *demo) release() {
	for i := range d.boxes {
		d.boxes[i].Reset()
	}
	d.label.Reset()
	d.root.Reset()
}
