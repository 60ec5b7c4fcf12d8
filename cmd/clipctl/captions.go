package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/captions"
)

func newCaptionsCommand() *cobra.Command {
	var words, output, font, seed string
	var style int

	cmd := &cobra.Command{
		Use:   "captions",
		Short: "Render an ASS caption file from recognized words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var ws []captions.Word
			if err := readJSONFile(words, &ws); err != nil {
				return err
			}
			if seed == "" {
				seed = words
			}
			id := captions.PickStyle(style, seed)
			events := captions.Build(ws, id)
			if err := captions.WriteFile(output, events, font); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d events, palette %s\n",
				output, len(events), captions.Palettes[id].Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&words, "words", "", "Words JSON file")
	cmd.Flags().StringVarP(&output, "output", "o", "captions.ass", "ASS output path")
	cmd.Flags().StringVar(&font, "font", captions.DefaultFont, "Caption font")
	cmd.Flags().IntVar(&style, "style", -1, "Palette index; negative picks one from --seed")
	cmd.Flags().StringVar(&seed, "seed", "", "Palette seed, usually the job id")
	_ = cmd.MarkFlagRequired("words")

	return cmd
}
