package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/blockcrawl/config"
	"github.com/use-agent/blockcrawl/models"
	"github.com/use-agent/blockcrawl/pipeline"
	"github.com/use-agent/blockcrawl/processor"
	"github.com/use-agent/blockcrawl/sink"
)

type extractFlags struct {
	url         string
	requestMode string
	parseMode   string
	block       string
	fields      []string
	processors  []string
	out         string
	json        bool
}

var extractOpts extractFlags

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractOpts.url, "url", "", "Address of the document to fetch.")
	f.StringVar(&extractOpts.requestMode, "request-mode", "direct", "Fetch mode: direct or anonymized.")
	f.StringVar(&extractOpts.parseMode, "parse-mode", "html", "Parse mode: html or xml.")
	f.StringVar(&extractOpts.block, "block", "", "XPath selecting the repeating blocks.")
	f.StringArrayVar(&extractOpts.fields, "field", nil, "Field as name=xpath, evaluated inside each block. Repeatable.")
	f.StringArrayVar(&extractOpts.processors, "processor", nil, "Post-processor as type:id:field[:arg]. Repeatable.")
	f.StringVar(&extractOpts.out, "out", "", "Directory for the record file (default: $BLOCKCRAWL_OUTPUT_DIR or ./data).")
	f.BoolVar(&extractOpts.json, "json", false, "Write records as JSON instead of key: value text.")
	_ = extractCmd.MarkFlagRequired("url")
	_ = extractCmd.MarkFlagRequired("block")
	_ = extractCmd.MarkFlagRequired("field")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract --url <address> --block <xpath> --field name=xpath [--processor type:id:field[:arg]]",
	Short: "Fetches a document, extracts block fields and writes the records to a file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := extractOpts.request()
		if err != nil {
			return err
		}

		cfg := config.Load()
		dir := extractOpts.out
		if dir == "" {
			dir = cfg.Sink.Dir
		}

		t1 := time.Now()
		resp, err := pipeline.NewRunner(cfg.Requester, nil).Run(cmd.Context(), req)
		if err != nil {
			return err
		}
		slog.Info("extraction finished",
			"url", resp.URL,
			"blocks", resp.BlockCount,
			"attempts", resp.Attempts,
			"seconds", time.Since(t1).Seconds(),
		)

		records := resp.Records
		if len(req.Processors) == 0 {
			records = fieldsToRecords(resp.Fields)
		}

		var path string
		if extractOpts.json {
			path, err = sink.SaveJSON(records, dir, time.Now())
		} else {
			path, err = sink.SaveRecords(records, resp.Keys, dir, time.Now())
		}
		if err != nil {
			return err
		}
		if path == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "no records extracted")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

// request turns the flag values into an extraction request.
func (f extractFlags) request() (*models.ExtractRequest, error) {
	req := &models.ExtractRequest{
		URL:           f.url,
		RequestMode:   f.requestMode,
		ParseMode:     f.parseMode,
		BlockSelector: f.block,
	}

	for _, raw := range f.fields {
		field, err := models.ParseField(raw)
		if err != nil {
			return nil, err
		}
		req.Fields = append(req.Fields, field)
	}
	for _, raw := range f.processors {
		spec, err := processor.ParseSpec(raw)
		if err != nil {
			return nil, err
		}
		req.Processors = append(req.Processors, spec)
	}

	req.Defaults()
	return req, nil
}

func fieldsToRecords(fields []models.RawFields) []models.Record {
	records := make([]models.Record, 0, len(fields))
	for _, f := range fields {
		rec := make(models.Record, len(f))
		for k, v := range f {
			rec[k] = v
		}
		records = append(records, rec)
	}
	return records
}

