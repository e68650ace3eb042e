package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/helixir/citation-network-service/internal/app"
	"github.com/helixir/citation-network-service/internal/domain"
	"github.com/helixir/citation-network-service/internal/network"
)

var buildCmd = &cobra.Command{
	Use:   "build <pmid>",
	Short: "Build the citation network around a PubMed article",
	Long: `Build resolves citing, referenced or similar articles for the given PMID,
fetches their details, runs the enrichment pass and prints the network as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime(cmd)
		if err != nil {
			return err
		}

		networkType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")
		openAccess, _ := cmd.Flags().GetBool("open-access-only")
		dedupe, _ := cmd.Flags().GetBool("dedupe")
		debug, _ := cmd.Flags().GetBool("debug")
		if !cmd.Flags().Changed("dedupe") {
			dedupe = cfg.Network.Dedupe
		}

		client := app.NewPubMedClient(cfg.PubMed, nil, logger)
		builder := app.NewBuilder(cfg.Network, client, nil, logger)

		result, err := builder.Build(cmd.Context(), network.Request{
			SourceID:       args[0],
			NetworkType:    domain.NetworkType(networkType),
			Limit:          limit,
			OpenAccessOnly: openAccess,
			Dedupe:         dedupe,
		})
		if err != nil {
			return err
		}

		out := struct {
			*domain.NetworkData
			Debug *network.DebugInfo `json:"debug,omitempty"`
		}{NetworkData: result.Network}
		if debug {
			out.Debug = &result.Debug
		}
		return writeJSON(out)
	},
}

func init() {
	buildCmd.Flags().String("type", string(domain.NetworkTypeMixed), "network type: citations, references, similar or mixed")
	buildCmd.Flags().Int("limit", 0, "related article limit (0 uses network.default_limit)")
	buildCmd.Flags().Bool("open-access-only", false, "keep only open-access related articles")
	buildCmd.Flags().Bool("dedupe", false, "collapse repeated article ids into one node")
	buildCmd.Flags().Bool("debug", false, "include discovery and fetch counters")

	rootCmd.AddCommand(buildCmd)
}

// writeJSON prints v as indented JSON on stdout.
func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
