package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/fairhill1/gameEngine-sub001/internal/config"
	"github.com/fairhill1/gameEngine-sub001/internal/engine/camera"
	"github.com/fairhill1/gameEngine-sub001/internal/engine/gpu/ogl"
	"github.com/fairhill1/gameEngine-sub001/internal/engine/model"
	"github.com/fairhill1/gameEngine-sub001/internal/engine/window"
	"github.com/fairhill1/gameEngine-sub001/internal/logger"
	"github.com/fairhill1/gameEngine-sub001/pkg/math"
)

// Viewer owns the window, GL device, camera and the loaded model, and runs
// the event/render loop.
type Viewer struct {
	cfg    *config.Config
	window *window.Window
	device *ogl.Device
	camera *camera.OrbitCamera
	model  *model.Model

	clip     string
	animTime float32
	playing  bool

	width, height int
	dragging      bool
	running       bool
}

func newViewer(cfg *config.Config, path string) (*Viewer, error) {
	v := &Viewer{
		cfg:    cfg,
		width:  cfg.Graphics.Width,
		height: cfg.Graphics.Height,
	}

	var err error
	v.window, err = window.New(window.Config{
		Title:      "Model Viewer - " + filepath.Base(path),
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// GL device needs the context the window created.
	v.device, err = ogl.New()
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create GL device: %w", err)
	}
	v.device.Resize(v.width, v.height)

	v.model = model.New(v.device, model.Options{
		Scale:    cfg.Import.Scale,
		FlipV:    cfg.Import.FlipV,
		Strategy: cfg.Animation.Strategy,
		Damping:  cfg.Animation.Damping,
	})

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		err = v.model.LoadFile(path)
	default:
		err = v.model.LoadBinary(path)
	}
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	if clips := v.model.Clips(); len(clips) > 0 {
		v.clip = clips[0]
		v.playing = true
		logger.Info("playing animation", zap.String("clip", v.clip))
	}

	v.camera = camera.NewOrbitCamera()
	if min, max, ok := v.model.Bounds(); ok {
		v.camera.FitToBounds(min[0], min[1], min[2], max[0], max[1], max[2])
	}

	return v, nil
}

// Run drives the event and render loop until quit.
func (v *Viewer) Run() error {
	v.running = true
	lastTime := time.Now()

	for v.running {
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		v.handleEvents()
		v.update(dt)
		v.render()
		v.window.SwapBuffers()
	}
	return nil
}

func (v *Viewer) handleEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			v.running = false

		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN {
				break
			}
			switch e.Keysym.Sym {
			case sdl.K_ESCAPE:
				v.running = false
			case sdl.K_SPACE:
				v.playing = !v.playing
			}

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				v.width, v.height = int(e.Data1), int(e.Data2)
				v.device.Resize(v.width, v.height)
			}

		case *sdl.MouseButtonEvent:
			if e.Button == sdl.BUTTON_LEFT {
				v.dragging = e.Type == sdl.MOUSEBUTTONDOWN
			}

		case *sdl.MouseMotionEvent:
			if v.dragging {
				v.camera.HandleDrag(float32(e.XRel), float32(e.YRel))
			}

		case *sdl.MouseWheelEvent:
			v.camera.HandleZoom(float32(e.Y))
		}
	}
}

func (v *Viewer) update(dt float32) {
	if v.clip == "" || !v.playing {
		return
	}

	v.animTime += dt
	if clip, ok := v.model.Animation(v.clip); ok && clip.Duration > 0 {
		for v.animTime > clip.Duration {
			v.animTime -= clip.Duration
		}
	}
	if err := v.model.UpdateAnimatedVertices(v.clip, v.animTime); err != nil {
		logger.Warn("animation update failed", zap.Error(err))
		v.playing = false
	}
}

func (v *Viewer) render() {
	v.device.BeginFrame()

	aspect := float32(v.width) / float32(v.height)
	projection := math.Perspective(0.785398, aspect, 0.01, 1000.0) // 45 degrees FOV
	v.device.SetCamera(v.camera.ViewMatrix(), projection)

	v.model.Render(math.Identity())
}

// Close tears down the model, device and window.
func (v *Viewer) Close() {
	if v.model != nil {
		v.model.Unload()
	}
	if v.device != nil {
		v.device.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}
