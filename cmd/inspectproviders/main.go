package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ncecere/holy_coop/backend/internal/config"
	"github.com/ncecere/holy_coop/backend/internal/orchestrator"
	"github.com/ncecere/holy_coop/backend/internal/providers"
)

func main() {
	configFile := flag.String("config", "", "path to composer.yaml (defaults to the standard search path)")
	probe := flag.Bool("probe", false, "run each provider's health check")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	fmt.Println("registered provider kinds:")
	for _, k := range providers.Kinds() {
		fmt.Printf("  %-8s %s (%s)\n", k.Kind, k.Description, strings.Join(k.Capabilities, ", "))
	}

	ctx := context.Background()
	lineup, err := providers.NewFactory(cfg).Build(ctx, cfg.Providers)
	if err != nil {
		log.Fatalf("build lineup: %v", err)
	}

	fmt.Println("\nfallback order:")
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tKIND\tMODEL\tPRIORITY\tCAPABILITY\tTIMEOUT\tCOST\tHEALTH")
	for i, p := range orchestrator.Sort(lineup) {
		c := p.Config()
		status := "-"
		if *probe {
			status = probeProvider(ctx, p)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%ds\t%s\t%s\n",
			i+1, c.ID, c.Kind, c.Model, c.Priority, c.Capability, c.TimeoutSeconds, c.CostPerImage.String(), status)
	}
	if err := tw.Flush(); err != nil {
		log.Fatalf("write table: %v", err)
	}
}

func probeProvider(ctx context.Context, p providers.Provider) string {
	checker, ok := p.(providers.HealthChecker)
	if !ok {
		return "n/a"
	}
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := checker.HealthCheck(probeCtx); err != nil {
		return "down: " + err.Error()
	}
	return "ok"
}
