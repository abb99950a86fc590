package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/AjayaPrabhu/lcablesync/internal/app"
	"github.com/AjayaPrabhu/lcablesync/internal/common"
	"github.com/AjayaPrabhu/lcablesync/internal/core/imaging"
	"github.com/AjayaPrabhu/lcablesync/internal/core/ocr"
	"github.com/AjayaPrabhu/lcablesync/internal/core/render"
	"github.com/AjayaPrabhu/lcablesync/internal/pipeline"
)

func main() {
	page := flag.Int("page", 1, "1-based page to recognize")
	cfg := common.LoadConfig()
	logger := app.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	flag.Parse()
	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runocr [-page N] <file.pdf>")
		os.Exit(2)
	}
	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read document", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	renderer, err := render.New(pipeline.RendererConfig(cfg.OCR), logger)
	if err != nil {
		logger.Error("renderer", "error", err)
		os.Exit(1)
	}
	engine, err := ocr.New(pipeline.EngineConfig(cfg.OCR), logger)
	if err != nil {
		logger.Error("ocr engine", "error", err)
		os.Exit(1)
	}
	if c, ok := engine.(io.Closer); ok {
		defer c.Close()
	}

	start := time.Now()
	img, err := renderer.Render(ctx, data, *page, cfg.Pipeline.DPI)
	if err != nil {
		logger.Error("render failed", "page", *page, "error", err)
		os.Exit(1)
	}
	gray, rep := imaging.Preprocess(img, imaging.Options{Upscale: cfg.Pipeline.Upscale})
	lines, err := engine.Recognize(ctx, gray)
	dur := time.Since(start)
	if err != nil {
		logger.Error("recognition failed", "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	for _, l := range lines {
		if l.Scored {
			fmt.Printf("%.2f\t%s\n", l.Confidence, l.Text)
		} else {
			fmt.Printf("-\t%s\n", l.Text)
		}
	}
	logger.Info("recognition OK",
		"engine", engine.Name(),
		"page", *page,
		"lines", len(lines),
		"skew", rep.Skew,
		"duration_ms", dur.Milliseconds(),
	)
}
