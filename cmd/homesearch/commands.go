package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/homesearch"
	"github.com/poiesic/homesearch/ingestion"
	"github.com/poiesic/homesearch/normalize"
	"github.com/poiesic/homesearch/query"
	"github.com/poiesic/homesearch/reembed"
	"github.com/poiesic/homesearch/search"
)

var errMissingArgument = errors.New("missing argument")

func openEngine(c *cli.Context, extra ...homesearch.Option) (*homesearch.Engine, error) {
	opts := append(homesearch.OptionsFromSettings(settingsFrom(c)), extra...)
	engine, err := homesearch.NewEngine(c.Context, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func statsCommand(c *cli.Context) error {
	location := c.Args().First()
	if location == "" {
		return fmt.Errorf("%w: dataset location", errMissingArgument)
	}
	settings := settingsFrom(c)
	out := c.String("out")
	if out == "" {
		out = settings.StatsPath
	}

	vocab, err := normalize.LoadVocabulary(settings.VocabularyPath)
	if err != nil {
		return err
	}
	loader, err := ingestion.NewLoader(nil, nil, ingestion.WithDryRun(true), ingestion.WithVocabulary(vocab))
	if err != nil {
		return err
	}
	defer loader.Release()

	var client ingestion.ObjectGetter
	if ingestion.IsS3(location) {
		if client, err = ingestion.NewS3Client(c.Context, ingestion.S3Config{
			Region:          settings.S3.Region,
			Endpoint:        settings.S3.Endpoint,
			AccessKeyID:     settings.S3.AccessKeyID,
			SecretAccessKey: settings.S3.SecretAccessKey,
		}); err != nil {
			return err
		}
	}

	report, err := loader.LoadFrom(c.Context, location, client)
	if err != nil {
		return err
	}
	if err := report.Statistics.Save(out); err != nil {
		return err
	}
	printReport(os.Stdout, report)
	success.Fprintf(os.Stdout, "Statistics for %d records written to %s\n", report.Loaded, out)
	return nil
}

func loadCommand(c *cli.Context) error {
	location := c.Args().First()
	if location == "" {
		return fmt.Errorf("%w: dataset location", errMissingArgument)
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := []ingestion.Option{
		ingestion.WithChunkSize(c.Int("chunk-size")),
		ingestion.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
		ingestion.WithDryRun(c.Bool("dry-run")),
	}
	if n := c.Int("workers"); n > 0 {
		opts = append(opts, ingestion.WithPoolSize(n))
	}

	report, err := engine.Load(c.Context, location, opts...)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	printReport(os.Stdout, report)
	if report.FailedChunks > 0 {
		return fmt.Errorf("%d chunks (%d records) could not be stored", report.FailedChunks, report.FailedRecords)
	}
	return nil
}

// buildRequest collects --param name=value pairs, --limit and the natural
// language query into a search request.
func buildRequest(params []string, limit int, natural string) (search.Request, error) {
	req := search.Request{}
	for _, p := range params {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected name=value", p)
		}
		req[name] = strings.TrimSpace(value)
	}
	if limit > 0 {
		req[query.ParamLimit] = limit
	}
	if natural = strings.TrimSpace(natural); natural != "" {
		req[query.ParamNaturalQuery] = natural
	}
	return req, nil
}

func searchCommand(c *cli.Context) error {
	req, err := buildRequest(c.StringSlice("param"), c.Int("limit"), strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return err
	}
	if len(req) == 0 {
		return fmt.Errorf("%w: a query or at least one --param", errMissingArgument)
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	resp, err := engine.Search(c.Context, req)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(os.Stdout, resp)
	}
	printResponse(os.Stdout, resp)
	return nil
}

func similarCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("%w: listing id", errMissingArgument)
	}
	req, err := buildRequest(c.StringSlice("param"), c.Int("limit"), strings.Join(c.Args().Tail(), " "))
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	resp, err := engine.SimilarTo(c.Context, id, req)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(os.Stdout, resp)
	}
	printResponse(os.Stdout, resp)
	return nil
}

func debugCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	records, err := engine.Debug(c.Context)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(os.Stdout, records)
	}
	for i, r := range records {
		printProperty(os.Stdout, i+1, r, nil)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	cfg := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if cfg.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	engine, err := openEngine(c, homesearch.WithoutLayoutCheck())
	if err != nil {
		return err
	}
	defer engine.Close()

	settings := settingsFrom(c)
	fmt.Fprintf(os.Stderr, "Backend: %s\n", settings.Backend)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", settings.AI.EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", settings.AI.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	summary, err := engine.Reembed(c.Context, cfg, os.Stderr)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	success.Fprintf(os.Stdout, "Re-embedded %d listings, layout %s\n", summary.Processed, summary.Signature)
	return nil
}
