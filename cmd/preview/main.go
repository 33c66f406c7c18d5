package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/joho/godotenv"

	"tryon/internal/domain"
	"tryon/internal/imagegen"
	"tryon/internal/infra"
	imageprovider "tryon/internal/providers/image"
	"tryon/internal/storage"
)

func main() {
	var (
		photoFlag    string
		colorFlag    string
		outFlag      string
		providerFlag string
	)
	flag.StringVar(&photoFlag, "photo", "", "path to the person photo")
	flag.StringVar(&colorFlag, "color", string(domain.ColorCoral), "bandana color token")
	flag.StringVar(&outFlag, "out", "", "output file (defaults to crochet-bandana-pro.<ext> in the working directory)")
	flag.StringVar(&providerFlag, "provider", "", "override IMAGE_PROVIDER (gemini or synthetic)")
	flag.Parse()

	_ = godotenv.Load()

	if strings.TrimSpace(photoFlag) == "" {
		fmt.Fprintln(os.Stderr, "-photo is required")
		os.Exit(1)
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if p := strings.ToLower(strings.TrimSpace(providerFlag)); p != "" {
		cfg.ImageProvider = p
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "preview").Str("provider", cfg.ImageProvider).Logger()

	provider, err := imageprovider.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure provider: %v\n", err)
		os.Exit(1)
	}
	assets, err := storage.NewFileStore(cfg.AssetDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open assets: %v\n", err)
		os.Exit(1)
	}
	template, err := imagegen.LoadInstructionTemplate(cfg.InstructionTemplateFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load instruction template: %v\n", err)
		os.Exit(1)
	}
	pipeline, err := imagegen.NewPipeline(imagegen.Options{
		Provider:  provider,
		Reference: storage.NewReferenceAsset(assets, cfg.ReferenceAsset),
		Template:  template,
		Logger:    &logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build pipeline: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(photoFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read photo: %v\n", err)
		os.Exit(1)
	}
	photo := imagegen.Photo{Data: data, MediaType: mimetype.Detect(data).String()}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ProviderTimeout)
	defer cancel()

	res, err := pipeline.Generate(ctx, photo, colorFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed (%s): %v\n", imagegen.KindOf(err), err)
		os.Exit(1)
	}

	out := strings.TrimSpace(outFlag)
	if out == "" {
		out = "crochet-bandana-pro." + domain.FileExtension(res.MediaType)
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", out, err)
		os.Exit(1)
	}
	abs, _ := filepath.Abs(out)
	fmt.Printf("preview written to %s (%s, %d bytes)\n", abs, res.MediaType, len(res.Data))
}
