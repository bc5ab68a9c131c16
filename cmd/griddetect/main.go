// Command griddetect runs circle-grid detection on an image and reports the
// 40 ordered centers.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"stereogrid/internal/detect"
	"stereogrid/internal/frame"
	"stereogrid/internal/refine"
)

type fileConfig struct {
	DiameterMin float64 `json:"diameter_min"`
	DiameterMax float64 `json:"diameter_max"`
	GridRows    int     `json:"grid_rows"`
	GridCols    int     `json:"grid_cols"`
}

func main() {
	imagePath := flag.String("image", "", "Path to a grayscale frame (TIFF, PNG, or JPEG)")
	synthetic := flag.Bool("synthetic", false, "Render a synthetic 4x10 test frame instead of loading -image")
	debugDir := flag.String("debug-png", "", "Write a debug overlay PNG (named cc_detection_<tag>_count<N>.png) to this directory")
	configPath := flag.String("config", "", "Path to a JSON config overriding diameter/grid parameters")
	verbose := flag.Bool("v", false, "Verbose structured logging")
	flag.Parse()

	if *imagePath == "" && !*synthetic {
		fmt.Println("Usage: griddetect -image <path> | -synthetic [-debug-png dir] [-config cfg.json] [-v]")
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	params := detect.DefaultParams()
	if *configPath != "" {
		if err := applyConfig(*configPath, &params); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	var f frame.Frame
	if *synthetic {
		spec := frame.DefaultGridSpec(2448, 2048)
		f = frame.Render(2448, 2048, spec, frame.RenderOptions{Background: 40, Foreground: 220})
		fmt.Printf("Rendered synthetic %dx%d frame, %d circles\n", f.Width, f.Height, spec.Rows*spec.Cols)
	} else {
		loaded, err := frame.Load(*imagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load frame: %v\n", err)
			os.Exit(1)
		}
		f = loaded
		fmt.Printf("Loaded %dx%d frame from %s\n", f.Width, f.Height, *imagePath)
	}

	engine := detect.NewEngine(params, log)

	result, err := engine.Detect(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Detection failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nDetected %d centers:\n", len(result.Centers))
	fmt.Printf("%-6s %10s %10s %12s\n", "Index", "X", "Y", "Tag")
	for i, c := range result.Centers {
		fmt.Printf("%-6d %10.3f %10.3f %12s\n", i, c.X, c.Y, result.Tags[i].String())
	}

	if *debugDir != "" {
		img, err := engine.DebugRender(f, engine.LastSeeds(), result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Debug render failed: %v\n", err)
			os.Exit(1)
		}
		path := debugFilename(*debugDir, result)
		out, err := os.Create(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", path, err)
			os.Exit(1)
		}
		defer out.Close()
		if err := png.Encode(out, img); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode debug PNG: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote debug overlay to %s\n", path)
	}
}

// debugFilename derives the per-frame debug artifact name
// cc_detection_<tag>_count<N>.png, placed in dir, per spec.md 6's diagnostic
// naming convention. <tag> is the refinement tag that produced the most of
// the 40 centers; <N> is the count of centers that carry it.
func debugFilename(dir string, result detect.Result) string {
	tag, count := dominantTag(result.Tags)
	name := fmt.Sprintf("cc_detection_%s_count%d.png", tag, count)
	return filepath.Join(dir, name)
}

// dominantTag returns the most common tag across tags and how many centers
// carry it, breaking ties in enum order (DtFast, DtEdge, RadialFit, Failed).
func dominantTag(tags [40]refine.Tag) (refine.Tag, int) {
	var counts [4]int
	for _, t := range tags {
		counts[t]++
	}
	best := refine.Tag(0)
	for t := refine.Tag(1); t < 4; t++ {
		if counts[t] > counts[best] {
			best = t
		}
	}
	return best, counts[best]
}

func applyConfig(path string, params *detect.Params) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	var cfg fileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DiameterMin > 0 {
		params.DiameterMin = cfg.DiameterMin
	}
	if cfg.DiameterMax > 0 {
		params.DiameterMax = cfg.DiameterMax
	}
	if cfg.GridRows > 0 {
		params.GridRows = cfg.GridRows
	}
	if cfg.GridCols > 0 {
		params.GridCols = cfg.GridCols
	}
	return nil
}
