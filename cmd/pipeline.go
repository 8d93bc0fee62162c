package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/yorulabs/leadgen-cli/internal/enrich"
	"github.com/yorulabs/leadgen-cli/internal/icp"
	"github.com/yorulabs/leadgen-cli/internal/ingest"
	"github.com/yorulabs/leadgen-cli/internal/pipeline"
	"github.com/yorulabs/leadgen-cli/internal/store"
	"github.com/yorulabs/leadgen-cli/pkg/apify"
	"github.com/yorulabs/leadgen-cli/pkg/apollo"
	"github.com/yorulabs/leadgen-cli/pkg/clay"
)

var (
	pipelineICP         string
	pipelineSource      string
	pipelineCSVFile     string
	pipelineProfileURLs []string
	pipelineLimit       int
	pipelineXLSX        bool
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the full pipeline: ingest, enrich, score, export",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		icpCfg, err := icp.Load(cfg.ICP.Dir, pipelineICP)
		if err != nil {
			return err
		}

		source, err := buildSource(st, icpCfg, pipelineSource, pipelineCSVFile, pipelineProfileURLs, pipelineLimit)
		if err != nil {
			return err
		}

		opts := []pipeline.Option{}
		if cfg.Clay.WebhookURL != "" {
			clayClient := clay.NewClient(cfg.Clay.WebhookURL, clay.WithAuthKey(cfg.Clay.Key))
			opts = append(opts, pipeline.WithEnricher(
				enrich.NewDispatcher(clayClient, st, enrich.WithBatchSize(cfg.Clay.BatchSize)),
			))
		}
		if pipelineXLSX {
			opts = append(opts, pipeline.WithXLSX())
		}

		p := pipeline.New(st, source, icpCfg, cfg.Export.Dir, opts...)
		outcome, err := p.Run(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	},
}

// buildSource wires the requested ingestion adapter.
func buildSource(st store.Store, icpCfg *icp.Config, name, csvFile string, profileURLs []string, limit int) (ingest.Source, error) {
	switch name {
	case ingest.SourceApollo, "apollo":
		if cfg.Apollo.Key == "" {
			return nil, eris.New("apollo API key is required (LEADGEN_APOLLO_KEY)")
		}
		client := apollo.NewClient(cfg.Apollo.Key, apollo.WithBaseURL(cfg.Apollo.BaseURL))
		return ingest.NewApolloSource(client, st, ingest.ApolloConfig{
			Filters: icpCfg.Filters,
			PerPage: cfg.Apollo.PerPage,
			Limit:   limit,
		}), nil

	case ingest.SourceCSV:
		if csvFile == "" {
			return nil, eris.New("--file is required for the csv source")
		}
		return ingest.NewCSVSource(csvFile, st), nil

	case ingest.SourceApify, "apify":
		if cfg.Apify.Token == "" {
			return nil, eris.New("apify token is required (LEADGEN_APIFY_TOKEN)")
		}
		if len(profileURLs) == 0 {
			return nil, eris.New("--profile-url is required for the apify source")
		}
		scraper := apify.NewClient(cfg.Apify.Token, apify.WithBaseURL(cfg.Apify.BaseURL))
		var matcher apollo.Client
		if cfg.Apollo.Key != "" {
			matcher = apollo.NewClient(cfg.Apollo.Key, apollo.WithBaseURL(cfg.Apollo.BaseURL))
		}
		return ingest.NewApifySource(scraper, matcher, st, ingest.ApifyConfig{
			ActorID:     cfg.Apify.ActorID,
			ProfileURLs: profileURLs,
			Limit:       limit,
		}), nil

	default:
		return nil, eris.Errorf("unknown source %q (apollo, csv, apify)", name)
	}
}

func init() {
	pipelineCmd.Flags().StringVar(&pipelineICP, "icp", "", "ICP config name (required)")
	pipelineCmd.Flags().StringVar(&pipelineSource, "source", "apollo", "lead source: apollo, csv, apify")
	pipelineCmd.Flags().StringVar(&pipelineCSVFile, "file", "", "CSV file path (csv source)")
	pipelineCmd.Flags().StringSliceVar(&pipelineProfileURLs, "profile-url", nil, "LinkedIn profile URL (apify source, repeatable)")
	pipelineCmd.Flags().IntVar(&pipelineLimit, "limit", 0, "max leads to fetch (0 = no limit)")
	pipelineCmd.Flags().BoolVar(&pipelineXLSX, "xlsx", false, "also write an XLSX workbook")
	_ = pipelineCmd.MarkFlagRequired("icp")
	rootCmd.AddCommand(pipelineCmd)
}
