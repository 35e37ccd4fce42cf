package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/lox/cardplatypus/internal/cfr"
	"github.com/lox/cardplatypus/internal/game/euchre"
	"github.com/lox/cardplatypus/internal/index"
	"github.com/lox/cardplatypus/internal/nodestore"
)

// ExportCmd prints the trained average policy for the player to move in a
// Euchre deal.
type ExportCmd struct {
	Deal      string `arg:"" help:"Deal history, e.g. 'TcQs9hJdQd|QcThJhKhKd|AcTsAhTdAd|9cKc9sKsQh|Jc|T'"`
	IndexPath string `default:"euchre.idx" help:"Built istate index"`
	StorePath string `default:"nodes.bin" help:"Trained node store"`
}

func (c *ExportCmd) Run(cli *CLI) error {
	logger := setupLogger(cli.Debug)

	st, err := euchre.FromString(c.Deal)
	if err != nil {
		return err
	}
	if st.IsChance() || st.IsTerminal() {
		return fmt.Errorf("deal has no decision to export")
	}

	ix, err := index.ReadFile(c.IndexPath)
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	store, err := nodestore.OpenMMap(c.StorePath, nodestore.MMapConfig{
		Slots:      ix.Len(),
		MaxActions: euchre.MaxLegalActions,
	})
	if err != nil {
		return fmt.Errorf("opening node store: %w", err)
	}
	defer store.Close()

	player := st.CurrentPlayer()
	logger.Debug("exporting policy", "player", player, "istate", st.InfoString(player))

	probs, err := cfr.NewPolicy(store, ix).ActionProbabilities(st)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Player %d to act (%s)", player, st.InfoString(player))))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t\n", headerStyle.Render("Action"), headerStyle.Render("Probability"))
	for _, ap := range probs {
		fmt.Fprintf(w, "%s\t%s\t\n",
			actionStyle.Render(euchre.ActionString(ap.Action)),
			valueStyle.Render(fmt.Sprintf("%.3f", ap.Prob)))
	}
	return w.Flush()
}
