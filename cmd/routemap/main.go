// Command routemap renders one dispatch snapshot into a map model without
// Kafka or HTTP. It reads the same JSON the service consumes and prints the
// render result as JSON, YAML, or GeoJSON.
//
// Usage:
//
//	routemap -i snapshot.json -f yaml --region-file region.yaml --enforce-region
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/response-map-service/internal/domain"
	"github.com/couchcryptid/response-map-service/internal/observability"
	"github.com/couchcryptid/response-map-service/internal/pipeline"
)

type Options struct {
	Input         string `short:"i" long:"in" description:"Snapshot JSON file. Reads from stdin if empty"`
	Output        string `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`
	Format        string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" choice:"geojson" default:"json"`
	RegionFile    string `long:"region-file" description:"YAML file with lat_min, lat_max, lng_min, lng_max. Centers empty maps and, with --enforce-region, limits coordinates. Defaults to Taita Taveta"`
	EnforceRegion bool   `long:"enforce-region" description:"Reject coordinates outside the region"`
	HideRoute     bool   `long:"hide-route" description:"Render markers only, without the route polyline"`
	LogLevel      string `long:"log-level" description:"Log level for diagnostics on stderr" default:"warn"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	in := io.Reader(os.Stdin)
	if opts.Input != "" {
		f, err := os.Open(opts.Input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	out := io.Writer(os.Stdout)
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if err := run(context.Background(), opts, in, out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts Options, in io.Reader, out io.Writer) error {
	region := domain.TaitaTavetaRegion
	if opts.RegionFile != "" {
		var err error
		if region, err = loadRegion(opts.RegionFile); err != nil {
			return err
		}
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	snapshot, err := domain.DecodeSnapshot(data)
	if err != nil {
		return err
	}
	if opts.HideRoute {
		snapshot.ShowRoute = false
	}

	var enforced *domain.BoundingBox
	if opts.EnforceRegion {
		enforced = &region
	}

	logger := observability.NewStderrLogger(opts.LogLevel)
	// One-shot run: metrics are collected but never scraped.
	renderer := domain.NewRenderer(enforced, nil)
	if opts.RegionFile != "" {
		// An empty map is centered on the chosen region, enforced or not.
		renderer.DefaultCenter = region.Center()
	}
	transformer := pipeline.NewTransformer(renderer, nil, observability.NewMetricsForTesting(), logger)
	rendered := transformer.Render(ctx, snapshot, pipeline.SourceCLI)

	var encoded []byte
	switch opts.Format {
	case "yaml":
		encoded, err = yaml.Marshal(rendered)
	case "geojson":
		encoded, err = json.MarshalIndent(rendered.Result.Map.FeatureCollection(), "", "  ")
	default:
		encoded, err = json.MarshalIndent(rendered, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", opts.Format, err)
	}

	if _, err := out.Write(encoded); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out)
	return err
}

// loadRegion reads a bounding box from YAML and rejects inverted corners.
func loadRegion(path string) (domain.BoundingBox, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.BoundingBox{}, fmt.Errorf("read region file: %w", err)
	}

	var box domain.BoundingBox
	if err := yaml.Unmarshal(raw, &box); err != nil {
		return domain.BoundingBox{}, fmt.Errorf("parse region file: %w", err)
	}
	if box.LatMin > box.LatMax || box.LngMin > box.LngMax {
		return domain.BoundingBox{}, fmt.Errorf("region file %s: min must not exceed max", path)
	}
	return box, nil
}
