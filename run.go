package compositor

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title      string
	Width      int
	Height     int
	ShowFPS    bool
	ClearColor Color
	// Update runs once per tick before the compositor ticks. Returning an
	// error ends the loop.
	Update func(dt float64) error
}

// RunConfigFrom builds a RunConfig from the window section of cfg.
func RunConfigFrom(cfg Config) RunConfig {
	return RunConfig{
		Title:   cfg.Window.Title,
		Width:   cfg.Window.Width,
		Height:  cfg.Window.Height,
		ShowFPS: cfg.Debug,
	}
}

// game adapts a compositor and its Scene to ebiten.Game.
type game struct {
	comp  *Compositor
	scene *Scene
	cfg   RunConfig
}

func (g *game) Update() error {
	dt := 1.0 / float64(ebiten.TPS())
	if g.cfg.Update != nil {
		if err := g.cfg.Update(dt); err != nil {
			return err
		}
	}
	return g.comp.Tick(dt)
}

func (g *game) Draw(screen *ebiten.Image) {
	if g.cfg.ClearColor.A > 0 {
		cc := g.cfg.ClearColor
		screen.Fill(color.RGBA64{
			R: uint16(cc.R * cc.A * 0xffff),
			G: uint16(cc.G * cc.A * 0xffff),
			B: uint16(cc.B * cc.A * 0xffff),
			A: uint16(cc.A * 0xffff),
		})
	}
	_ = g.comp.RunOnHost(func() { g.scene.Draw(screen) })
	if g.cfg.ShowFPS {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
	}
}

func (g *game) Layout(_, _ int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}

// Run opens a window showing scene and drives comp from the ebiten loop
// until the window closes or Update fails. scene must be comp's host.
func Run(comp *Compositor, scene *Scene, cfg RunConfig) error {
	if comp.Host() != Host(scene) {
		return fmt.Errorf("compositor: scene is not the compositor's host")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 1280, 720
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	return ebiten.RunGame(&game{comp: comp, scene: scene, cfg: cfg})
}
