package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/lyrics"
)

var lyricsCmd = &cobra.Command{
	Use:   "lyrics <artist> <title>",
	Short: "Fetch the lyrics of one song from the lyrics site.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := lyrics.NewHTTPFetcher(appCfg.Lyrics).Fetch(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	},
}
