package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ncecere/holy_coop/backend/internal/app"
	"github.com/ncecere/holy_coop/backend/internal/config"
	"github.com/ncecere/holy_coop/backend/internal/imageutil"
	"github.com/ncecere/holy_coop/backend/internal/models"
	"github.com/ncecere/holy_coop/backend/internal/prompt"
)

func main() {
	var (
		configFile = flag.String("config", "", "path to composer.yaml (defaults to the standard search path)")
		photoPath  = flag.String("photo", "", "path to the source photo (required)")
		subject    = flag.String("subject", "", "biblical figure to stand next to (required)")
		attire     = flag.String("attire", "", "attire choice (keep_original, biblical_era_clothing, modern_casual, formal_workwear)")
		style      = flag.String("style", "", "style choice (cinematic_realistic, oil_painting, soft_illustration, vintage_film)")
		aspect     = flag.String("aspect", "", "aspect ratio hint such as 1:1 or 3:4")
		only       = flag.String("providers", "", "comma separated provider ids to try, in lineup order")
		outPath    = flag.String("out", "", "output file (defaults to the export filename in the current directory)")
	)
	flag.Parse()

	if strings.TrimSpace(*photoPath) == "" || strings.TrimSpace(*subject) == "" {
		flag.Usage()
		os.Exit(2)
	}

	attireChoice, err := models.ParseAttire(*attire)
	if err != nil {
		log.Fatalf("%v", err)
	}
	styleChoice, err := models.ParseStyle(*style)
	if err != nil {
		log.Fatalf("%v", err)
	}
	photo, err := os.ReadFile(*photoPath)
	if err != nil {
		log.Fatalf("read photo: %v", err)
	}

	cfg, err := config.Load(config.Options{ConfigFile: *configFile})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Exports.Enabled = false
	cfg.RateLimits.Enabled = false
	cfg.Health.Enabled = false

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.NewContainer(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("build container: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Close(closeCtx)
	}()

	var ids []string
	for _, id := range strings.Split(*only, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	out, err := container.Compose(ctx, app.ComposeInput{
		Request: models.GenerationRequest{
			SourceImage:        photo,
			SubjectDescription: *subject,
			Attire:             attireChoice,
			Style:              styleChoice,
			AspectRatio:        *aspect,
		},
		ProviderIDs: ids,
	})
	if err != nil {
		printFailure(err)
		os.Exit(1)
	}

	target := *outPath
	if target == "" {
		target = prompt.ExportFilename(*subject, time.Now())
	}
	data := out.Result.Image
	if ext := strings.ToLower(filepath.Ext(target)); ext == ".jpg" || ext == ".jpeg" {
		if converted, convErr := imageutil.ToJPEG(data, cfg.Exports.JPEGQuality); convErr == nil {
			data = converted
		}
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		log.Fatalf("write output: %v", err)
	}

	fmt.Printf("provider: %s\ncost: %s\nwrote: %s\n", out.Result.ProviderUsed, out.Result.Cost.String(), target)
	for _, attempt := range out.Result.Attempts {
		fmt.Printf("  %-16s %-24s tries=%d %s\n", attempt.Provider, attempt.Outcome, attempt.Tries, attempt.Reason)
	}
}

func printFailure(err error) {
	var genErr *models.GenerationError
	if !errors.As(err, &genErr) {
		fmt.Fprintf(os.Stderr, "composition failed: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "composition failed (%s): %s\n", genErr.Kind, genErr.Message)
	for _, attempt := range genErr.Attempts {
		fmt.Fprintf(os.Stderr, "  %-16s %-24s tries=%d %s\n", attempt.Provider, attempt.Outcome, attempt.Tries, attempt.Reason)
	}
}
