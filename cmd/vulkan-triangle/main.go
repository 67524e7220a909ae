// Command vulkan-triangle opens a window and renders a hard-coded triangle
// with Vulkan.
package main

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/urfave/cli/v2"
	vk "github.com/vulkan-go/vulkan"

	triangle "github.com/arieldon/vulkan-triangle"
)

func init() {
	// GLFW event handling must run on the main OS thread.
	runtime.LockOSThread()
}

func main() {
	app := &cli.App{
		Name:  "vulkan-triangle",
		Usage: "render a triangle with Vulkan",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "load settings from a TOML `FILE`",
			},
			&cli.IntFlag{
				Name:  "width",
				Usage: "window width in pixels",
			},
			&cli.IntFlag{
				Name:  "height",
				Usage: "window height in pixels",
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "window title",
			},
			&cli.IntFlag{
				Name:  "frames",
				Usage: "frames in flight",
			},
			&cli.StringFlag{
				Name:  "vert",
				Usage: "path to the compiled vertex shader",
			},
			&cli.StringFlag{
				Name:  "frag",
				Usage: "path to the compiled fragment shader",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable the Vulkan validation layer",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.New(os.Stderr, "", 0).Fatalf("[ERROR] %v", err)
	}
}

func run(ctx *cli.Context) error {
	cfg := triangle.DefaultConfig()
	if path := ctx.String("config"); path != "" {
		var err error
		cfg, err = triangle.LoadConfig(path)
		if err != nil {
			return err
		}
	}
	if ctx.IsSet("width") {
		cfg.Width = ctx.Int("width")
	}
	if ctx.IsSet("height") {
		cfg.Height = ctx.Int("height")
	}
	if ctx.IsSet("title") {
		cfg.Title = ctx.String("title")
	}
	if ctx.IsSet("frames") {
		cfg.FramesInFlight = ctx.Int("frames")
	}
	if ctx.IsSet("vert") {
		cfg.VertexShader = ctx.String("vert")
	}
	if ctx.IsSet("frag") {
		cfg.FragmentShader = ctx.String("frag")
	}
	if ctx.IsSet("debug") {
		cfg.EnableValidation = ctx.Bool("debug")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("initializing GLFW: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	defer window.Destroy()

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		return fmt.Errorf("initializing Vulkan: %w", err)
	}

	engine, err := triangle.NewEngine(window, cfg)
	if err != nil {
		return err
	}
	defer engine.Destroy()

	return engine.Run()
}
