package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/weldvault/qualify-cli/internal/model"
)

var (
	deriveForm  string
	deriveInput string
	deriveCodes []string
	deriveSave  bool
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive qualification ranges for one test record",
	Long:  "Reads a single actual-value record (JSON object) and prints the per-code and governing qualification ranges.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rec, err := readRecord(deriveInput)
		if err != nil {
			return err
		}

		a, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		filter := deriveCodes
		if len(filter) == 0 {
			filter = cfg.Engine.Codes
		}

		result, err := a.Engine.Derive(ctx, rec, model.FormType(deriveForm), filter)
		if err != nil {
			return eris.Wrap(err, "derive")
		}

		if deriveSave {
			saved, err := a.Store.SaveDerivation(ctx, rec, result)
			if err != nil {
				return eris.Wrap(err, "save derivation")
			}
			zap.L().Info("derivation saved", zap.String("id", saved.ID))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(result), "encode result")
	},
}

func init() {
	deriveCmd.Flags().StringVar(&deriveForm, "form", string(model.FormWPQ), "form type (wpq, bpqr)")
	deriveCmd.Flags().StringVar(&deriveInput, "input", "-", "record JSON file, or - for stdin")
	deriveCmd.Flags().StringSliceVar(&deriveCodes, "codes", nil, "restrict derivation to these code ids")
	deriveCmd.Flags().BoolVar(&deriveSave, "save", false, "persist the result to the audit store")
	rootCmd.AddCommand(deriveCmd)
}

func readRecord(path string) (model.Record, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "open record")
		}
		defer f.Close()
		r = f
	}

	var rec model.Record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, eris.Wrap(err, "parse record")
	}
	return rec, nil
}
