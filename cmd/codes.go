package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/weldvault/qualify-cli/internal/model"
)

var codesFormat string

// codeInfo is the listing row for one registered code.
type codeInfo struct {
	ID    string   `json:"id" yaml:"id"`
	Forms []string `json:"forms" yaml:"forms"`
}

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "List the registered qualification codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := newRegistry()

		var out []codeInfo
		for _, code := range reg.All() {
			info := codeInfo{ID: code.ID()}
			for _, ft := range []model.FormType{model.FormWPQ, model.FormBPQR} {
				if code.AppliesTo(ft) {
					info.Forms = append(info.Forms, string(ft))
				}
			}
			out = append(out, info)
		}

		switch codesFormat {
		case "yaml":
			return eris.Wrap(yaml.NewEncoder(os.Stdout).Encode(out), "encode yaml")
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(out), "encode json")
		default:
			return eris.Errorf("unknown format %q (valid: json, yaml)", codesFormat)
		}
	},
}

func init() {
	codesCmd.Flags().StringVar(&codesFormat, "format", "json", "output format (json, yaml)")
	rootCmd.AddCommand(codesCmd)
}
