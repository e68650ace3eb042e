package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixir/citation-network-service/internal/app"
	"github.com/helixir/citation-network-service/internal/domain"
)

// linkKinds maps CLI names to ELink link names.
var linkKinds = map[string]domain.LinkKind{
	"citedby":    domain.LinkKindCitedBy,
	"references": domain.LinkKindReferences,
	"similar":    domain.LinkKindSimilar,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <pmid>[,<pmid>...]",
	Short: "Fetch and parse article details",
	Long: `Fetch calls efetch for the given PMIDs and prints the parsed articles.
Unlike a network build, upstream failures are reported as errors.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		openAccess, _ := cmd.Flags().GetBool("open-access-only")

		client := app.NewPubMedClient(cfg.PubMed, nil, logger)
		articles, err := client.Fetch(cmd.Context(), splitIDs(args[0]), openAccess)
		if err != nil {
			return err
		}
		return writeJSON(articles)
	},
}

var linksCmd = &cobra.Command{
	Use:   "links <pmid>",
	Short: "List related PMIDs for one article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kindName, _ := cmd.Flags().GetString("kind")
		kind, ok := linkKinds[kindName]
		if !ok {
			return domain.NewValidationError("kind", "must be one of citedby, references, similar")
		}
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, logger, err := loadRuntime(cmd)
		if err != nil {
			return err
		}

		client := app.NewPubMedClient(cfg.PubMed, nil, logger)
		ids, err := client.Links(cmd.Context(), args[0], kind, limit)
		if err != nil {
			return err
		}
		return writeJSON(ids)
	},
}

func init() {
	fetchCmd.Flags().Bool("open-access-only", false, "drop articles without open-access markers")
	linksCmd.Flags().String("kind", "citedby", "relationship: citedby, references or similar")
	linksCmd.Flags().Int("limit", 50, "maximum number of ids")

	rootCmd.AddCommand(fetchCmd, linksCmd)
}

// splitIDs splits a comma-separated id list, dropping blanks.
func splitIDs(raw string) []string {
	ids := []string{}
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
