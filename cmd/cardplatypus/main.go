package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Debug   bool             `help:"Enable debug logging"`
	Config  string           `help:"Path to an HCL config file" default:"cardplatypus.hcl" type:"path"`

	BuildIndex BuildIndexCmd `cmd:"build-index" help:"Enumerate the canonical Euchre istate universe and build the perfect-hash index"`
	Train      TrainCmd      `cmd:"" help:"Train a CFR policy"`
	Advise     AdviseCmd     `cmd:"" help:"Search a deal and recommend an action"`
	Export     ExportCmd     `cmd:"" help:"Print the trained policy for a deal"`
	Benchmark  BenchmarkCmd  `cmd:"" help:"Play agents against each other and report scores"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("cardplatypus"),
		kong.Description("Regret-minimization training and game-tree search for trick-taking card games"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
