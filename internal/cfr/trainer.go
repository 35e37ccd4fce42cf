package cfr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/cardplatypus/internal/fileutil"
	"github.com/lox/cardplatypus/internal/game"
	"github.com/lox/cardplatypus/internal/index"
	"github.com/lox/cardplatypus/internal/nodestore"
	"github.com/lox/cardplatypus/internal/randutil"
	"github.com/lox/cardplatypus/internal/search"
)

// nodePrior seeds fresh nodes with a tiny uniform mass so regret matching
// and averaging never divide by zero on an untrained node.
const nodePrior = 1e-6

// Trainer runs CFR iterations against a node store. It is safe for
// concurrent use by its own workers; concurrent node writes are
// last-writer-wins, which external sampling tolerates.
type Trainer struct {
	cfg     Config
	root    func() game.State
	store   nodestore.Store
	indexer index.Indexer
	leaf    *search.OpenHandSolver
	logger  *log.Logger

	iter   atomic.Uint64
	nodes  atomic.Uint64
	ckptMu sync.Mutex
}

// NewTrainer creates a trainer over fresh root states produced by root.
func NewTrainer(cfg Config, root func() game.State, store nodestore.Store, indexer index.Indexer) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	t := &Trainer{
		cfg:     cfg,
		root:    root,
		store:   store,
		indexer: indexer,
		logger:  logger,
	}
	if cfg.MaxDepth != nil {
		t.leaf = search.NewOpenHandSolver(cfg.Solver)
	}
	return t, nil
}

// Iteration returns the number of completed iterations.
func (t *Trainer) Iteration() uint64 {
	return t.iter.Load()
}

// NodesTouched returns the number of istate nodes visited so far.
func (t *Trainer) NodesTouched() uint64 {
	return t.nodes.Load()
}

// Run trains until the configured iteration count is reached or the context
// is cancelled. progress, if non-nil, is called after every iteration and
// may be called concurrently.
func (t *Trainer) Run(ctx context.Context, progress func(Progress)) error {
	if err := t.resume(); err != nil {
		return err
	}

	start := time.Now()
	workers := t.cfg.Workers
	if workers == 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		rng := randutil.New(t.cfg.Seed + int64(w))
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				it := t.iter.Add(1)
				if it > t.cfg.Iterations {
					t.iter.Store(t.cfg.Iterations)
					return nil
				}
				if err := t.iterate(it, rng); err != nil {
					return err
				}
				if progress != nil {
					progress(Progress{
						Iteration:    it,
						Total:        t.cfg.Iterations,
						NodesTouched: t.nodes.Load(),
						Elapsed:      time.Since(start),
					})
				}
				if t.cfg.CheckpointPath != "" && it%t.cfg.CheckpointEvery == 0 {
					if err := t.checkpoint(it); err != nil {
						return err
					}
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if t.cfg.CheckpointPath != "" {
		if err := t.checkpoint(t.iter.Load()); err != nil {
			return err
		}
	}
	return t.store.Flush()
}

// iterate runs one traversal per seat for one iteration.
func (t *Trainer) iterate(it uint64, rng *rand.Rand) error {
	st := t.root()
	for p := 0; p < st.NumPlayers(); p++ {
		var err error
		switch t.cfg.Mode {
		case ModeExternal:
			_, err = t.external(t.root(), game.Player(p), it, rng)
		case ModeChance:
			_, err = t.reachCFR(t.root(), game.Player(p), it, [2]float64{1, 1}, 1, phaseRegrets, true, rng)
		case ModeVanilla:
			_, err = t.reachCFR(t.root(), game.Player(p), it, [2]float64{1, 1}, 1, phaseRegrets, false, rng)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// actionPair carries a raw legal action with its canonical form. Node slots
// are ordered by the canonical action so every history of an istate reads
// and writes the same slot.
type actionPair struct {
	raw  game.Action
	norm game.Action
}

// istatePairs canonicalizes an istate key and its legal actions.
func istatePairs(st game.State, p game.Player, actions []game.Action) (game.Key, []actionPair) {
	key := st.InfoKey(p)
	pairs := make([]actionPair, len(actions))
	for i, a := range actions {
		pairs[i] = actionPair{raw: a, norm: a}
	}
	if n, ok := st.(game.Normalizer); ok {
		key = n.NormalizeInfoKey(key)
		for i := range pairs {
			pairs[i].norm = n.NormalizeAction(pairs[i].raw)
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].norm < pairs[j].norm })
	}
	return key, pairs
}

// fetch resolves the istate's dense index and loads or creates its node.
func (t *Trainer) fetch(st game.State, p game.Player, actions []game.Action) (uint64, *nodestore.Node, []actionPair, error) {
	key, pairs := istatePairs(st, p, actions)
	idx, err := t.indexer.Index(key)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("cfr: indexing istate: %w", err)
	}
	node, err := t.store.Get(idx)
	if err != nil {
		return 0, nil, nil, err
	}
	if node == nil {
		node = nodestore.NewNode(len(pairs))
		for i := range pairs {
			node.RegretSum[i] = nodePrior
			node.StrategySum[i] = nodePrior
		}
	} else if node.NumActions() != len(pairs) {
		return 0, nil, nil, fmt.Errorf("cfr: node %d holds %d actions, istate has %d", idx, node.NumActions(), len(pairs))
	}
	t.nodes.Add(1)
	return idx, node, pairs, nil
}

// discount applies linear regret discounting on node touch: stored regrets
// shrink by i/(i+1) for each iteration since the node was last updated,
// capped at the cutoff. Untouched nodes only record the iteration.
func (t *Trainer) discount(node *nodestore.Node, it uint64) {
	if t.cfg.LinearDiscount && node.LastTouched > 0 {
		end := min(it, t.cfg.DiscountCutoff)
		if end > node.LastTouched {
			// the product of i/(i+1) over [last, end) telescopes
			factor := float64(node.LastTouched) / float64(end)
			for i := range node.RegretSum {
				node.RegretSum[i] *= factor
			}
		}
	}
	node.LastTouched = it
}

// leafValue scores the current sampled world exactly for player.
func (t *Trainer) leafValue(st game.State, player game.Player) (float64, error) {
	res, err := t.leaf.Solve(st, player)
	if err != nil {
		return 0, fmt.Errorf("cfr: leaf evaluation: %w", err)
	}
	return res.Value, nil
}

// sampleIndex draws an index from a probability vector.
func sampleIndex(rng *rand.Rand, probs []float64) int {
	r := rng.Float64()
	acc := 0.0
	for i, p := range probs {
		acc += p
		if r < acc {
			return i
		}
	}
	return len(probs) - 1
}

const checkpointVersion = 1

type checkpointFile struct {
	Version   int       `json:"version"`
	Mode      Mode      `json:"mode"`
	Seed      int64     `json:"seed"`
	Iteration uint64    `json:"iteration"`
	SavedAt   time.Time `json:"saved_at"`
}

// checkpoint flushes the node store and records the completed iteration.
func (t *Trainer) checkpoint(it uint64) error {
	t.ckptMu.Lock()
	defer t.ckptMu.Unlock()

	if err := t.store.Flush(); err != nil {
		return fmt.Errorf("cfr: flushing store: %w", err)
	}
	data, err := json.MarshalIndent(checkpointFile{
		Version:   checkpointVersion,
		Mode:      t.cfg.Mode,
		Seed:      t.cfg.Seed,
		Iteration: it,
		SavedAt:   time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(t.cfg.CheckpointPath, data, 0o644); err != nil {
		return fmt.Errorf("cfr: writing checkpoint: %w", err)
	}
	t.logger.Debug("checkpoint saved", "path", t.cfg.CheckpointPath, "iteration", it)
	return nil
}

// resume loads the checkpoint, if one exists, and fast-forwards the
// iteration counter.
func (t *Trainer) resume() error {
	if t.cfg.CheckpointPath == "" {
		return nil
	}
	data, err := os.ReadFile(t.cfg.CheckpointPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cfr: reading checkpoint: %w", err)
	}
	var ckpt checkpointFile
	if err := json.Unmarshal(data, &ckpt); err != nil {
		return fmt.Errorf("cfr: parsing checkpoint: %w", err)
	}
	if ckpt.Version != checkpointVersion {
		return fmt.Errorf("cfr: checkpoint version %d not supported", ckpt.Version)
	}
	if ckpt.Mode != t.cfg.Mode {
		return fmt.Errorf("cfr: checkpoint was trained with mode %q, configured mode is %q", ckpt.Mode, t.cfg.Mode)
	}
	t.iter.Store(ckpt.Iteration)
	t.logger.Info("resuming from checkpoint", "path", t.cfg.CheckpointPath, "iteration", ckpt.Iteration)
	return nil
}
