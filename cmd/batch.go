package main

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/weldvault/qualify-cli/internal/intake"
	"github.com/weldvault/qualify-cli/internal/model"
)

var (
	batchForm        string
	batchInput       string
	batchCodes       []string
	batchSave        bool
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Derive qualification ranges for every record in a file",
	Long:  "Reads records from a JSONL export or an XLSX coupon log and prints one result JSON per line. Derivation is pure, so records run concurrently.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		records, err := intake.ReadFile(batchInput)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			zap.L().Info("no records in input", zap.String("input", batchInput))
			return nil
		}

		a, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		filter := batchCodes
		if len(filter) == 0 {
			filter = cfg.Engine.Codes
		}

		var ok, failed atomic.Int64
		var mu sync.Mutex // stdout
		enc := json.NewEncoder(os.Stdout)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(batchConcurrency)
		for _, rec := range records {
			rec := rec
			g.Go(func() error {
				result, err := a.Engine.Derive(gctx, rec, model.FormType(batchForm), filter)
				if err != nil {
					// Unknown code id is a config mistake: fail the batch.
					return err
				}
				if batchSave {
					if _, err := a.Store.SaveDerivation(gctx, rec, result); err != nil {
						failed.Add(1)
						zap.L().Error("save derivation", zap.Error(err))
						return nil
					}
				}
				mu.Lock()
				err = enc.Encode(result)
				mu.Unlock()
				if err != nil {
					return eris.Wrap(err, "encode result")
				}
				ok.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("batch complete",
			zap.Int("records", len(records)),
			zap.Int64("ok", ok.Load()),
			zap.Int64("failed", failed.Load()),
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchForm, "form", string(model.FormWPQ), "form type (wpq, bpqr)")
	batchCmd.Flags().StringVar(&batchInput, "input", "", "records file (.jsonl or .xlsx)")
	batchCmd.Flags().StringSliceVar(&batchCodes, "codes", nil, "restrict derivation to these code ids")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "persist each result to the audit store")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "max concurrent derivations")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}
