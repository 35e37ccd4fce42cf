package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"

	"github.com/lox/cardplatypus/internal/index"
)

// BuildIndexCmd enumerates the canonical istate universe and writes the
// perfect-hash index to disk.
type BuildIndexCmd struct {
	Output         string  `short:"o" default:"euchre.idx" help:"Output path for the index"`
	MaxCardsPlayed int     `default:"1" help:"How deep into the play phase istates are indexed (0-4)"`
	Gamma          float64 `default:"1.7" help:"Perfect-hash level sizing factor"`
	NoProgress     bool    `help:"Disable the progress bar"`
}

func (c *BuildIndexCmd) Run(cli *CLI) error {
	logger := setupLogger(cli.Debug)

	cfg := index.Config{
		MaxCardsPlayed: c.MaxCardsPlayed,
		Gamma:          c.Gamma,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Info("building istate index", "max_cards_played", cfg.MaxCardsPlayed)

	var bar *progressbar.ProgressBar
	if !c.NoProgress {
		bar = progressbar.NewOptions(len(index.FaceUpCards),
			progressbar.OptionSetDescription("enumerating shards"),
			progressbar.OptionShowCount(),
		)
	}

	ix, err := index.BuildEuchre(cfg, func(p index.BuildProgress) {
		if p.Done {
			if bar != nil {
				_ = bar.Add(1)
			}
			logger.Debug("shard built", "face_up", p.FaceUp, "keys", p.Keys)
		}
	})
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	if err := ix.WriteFile(c.Output); err != nil {
		return err
	}
	logger.Info("index written", "path", c.Output, "istates", ix.Len())
	return nil
}
