package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// FileConfig is the optional HCL configuration file. Command-line flags
// override anything set here.
type FileConfig struct {
	Train  *TrainSettings  `hcl:"train,block"`
	Search *SearchSettings `hcl:"search,block"`
}

// TrainSettings mirrors the train command's tunables.
type TrainSettings struct {
	Mode            string `hcl:"mode,optional"`
	Iterations      uint64 `hcl:"iterations,optional"`
	Workers         int    `hcl:"workers,optional"`
	Seed            int64  `hcl:"seed,optional"`
	CheckpointEvery uint64 `hcl:"checkpoint_every,optional"`
}

// SearchSettings mirrors the search flags shared by advise and benchmark.
type SearchSettings struct {
	Worlds    int `hcl:"worlds,optional"`
	Workers   int `hcl:"workers,optional"`
	BudgetMs  int `hcl:"budget_ms,optional"`
	TableSize int `hcl:"table_size,optional"`
}

// LoadConfig reads an HCL config file. A missing file is not an error; it
// yields an empty config.
func LoadConfig(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &FileConfig{}, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config FileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	return &config, nil
}
