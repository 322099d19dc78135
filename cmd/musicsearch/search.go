package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher"
)

var (
	searchField  string
	searchCorpus string
	searchLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one query against a built index and print the ranked hits.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchField, "field", "f", string(document.FieldLyricsText), "field to search (albums default to albumName)")
	searchCmd.Flags().StringVarP(&searchCorpus, "corpus", "c", document.CorpusSongs.String(), "corpus to search (songs or albums)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of hits")
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, opened, err := searcher.Open(appCfg.Indexer.DataDir, searcher.Options{
		MaxResults: appCfg.Search.MaxResults,
	})
	if err != nil {
		return err
	}
	defer func() {
		for _, ix := range opened {
			ix.Close()
		}
	}()

	field := searchField
	if c, err := document.ParseCorpus(searchCorpus); err == nil && c == document.CorpusAlbums && !cmd.Flags().Changed("field") {
		field = string(document.FieldAlbumName)
	}
	res, err := svc.Search(cmd.Context(), args[0], field, searchCorpus, searchLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  (%d hits)\n", res.Query, res.TotalHits)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for rank, hit := range res.Results {
		stored, err := svc.GetDocument(hit.DocID, res.Corpus)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%.4f\t%d\t%s\n", rank+1, hit.Score, hit.DocID, title(stored))
	}
	return tw.Flush()
}

func title(s document.Stored) string {
	if name, ok := s[document.FieldSongName]; ok {
		return name + " - " + s[document.FieldSingerName]
	}
	return s[document.FieldAlbumName] + " - " + s[document.FieldSingerName] + " (" + s[document.FieldAlbumYear] + ")"
}
