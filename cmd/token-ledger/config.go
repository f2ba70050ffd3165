package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/axiomesh/token-ledger/pkg/repo"
)

var configCMD = &cli.Command{
	Name:  "config",
	Usage: "The config manage commands",
	Subcommands: []*cli.Command{
		{
			Name:   "generate",
			Usage:  "Generate default config and genesis config",
			Action: generate,
		},
		{
			Name:   "show",
			Usage:  "Show the complete config processed by the environment variable",
			Action: show,
		},
		{
			Name:   "show-genesis",
			Usage:  "Show the complete genesis config processed by the environment variable",
			Action: showGenesis,
		},
		{
			Name:   "check",
			Usage:  "Check if the config file is valid",
			Action: check,
		},
	},
}

func generate(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	if fileExist(filepath.Join(p, repo.CfgFileName)) {
		fmt.Println("token-ledger repo already exists")
		return nil
	}

	if err := os.MkdirAll(p, 0755); err != nil {
		return err
	}

	r := repo.Default(p)
	if err := r.Flush(); err != nil {
		return err
	}
	fmt.Printf("config successfully generated in %s\n", p)
	return nil
}

func show(ctx *cli.Context) error {
	r, err := loadRepo(ctx)
	if err != nil || r == nil {
		return err
	}
	str, err := repo.MarshalConfig(r.Config)
	if err != nil {
		return err
	}
	fmt.Println(str)
	return nil
}

func showGenesis(ctx *cli.Context) error {
	r, err := loadRepo(ctx)
	if err != nil || r == nil {
		return err
	}
	str, err := repo.MarshalConfig(r.GenesisConfig)
	if err != nil {
		return err
	}
	fmt.Println(str)
	return nil
}

func check(ctx *cli.Context) error {
	r, err := loadRepo(ctx)
	if err != nil {
		return fmt.Errorf("config file format error, please check: %w", err)
	}
	if r != nil {
		fmt.Println("config is valid")
	}
	return nil
}

func loadRepo(ctx *cli.Context) (*repo.Repo, error) {
	p, err := getRootPath(ctx)
	if err != nil {
		return nil, err
	}
	if !fileExist(filepath.Join(p, repo.CfgFileName)) {
		fmt.Println("token-ledger repo not exist")
		return nil, nil
	}
	return repo.Load(p)
}
