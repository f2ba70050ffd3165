package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/axiomesh/token-ledger/internal/app"
	"github.com/axiomesh/token-ledger/pkg/loggers"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

func fileExist(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func pretty(d any) error {
	res, err := json.MarshalIndent(d, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(res))
	return nil
}

func getRootPath(ctx *cli.Context) (string, error) {
	return repo.LoadRepoRootFromEnv(ctx.String("repo"))
}

// prepareRepo loads an existing repo for offline commands.
func prepareRepo(ctx *cli.Context) (*repo.Repo, error) {
	p, err := getRootPath(ctx)
	if err != nil {
		return nil, err
	}
	if !fileExist(filepath.Join(p, repo.CfgFileName)) {
		return nil, errors.New("token-ledger repo not exist")
	}

	r, err := repo.Load(p)
	if err != nil {
		return nil, err
	}

	// close monitor in offline mode
	r.Config.Monitor.Enable = false

	fmt.Printf("%s-repo: %s\n", repo.AppName, r.RepoRoot)

	if err := loggers.Initialize(r, false); err != nil {
		return nil, err
	}

	if err := app.PrepareTokenLedger(r); err != nil {
		return nil, fmt.Errorf("prepare token-ledger failed: %w", err)
	}
	return r, nil
}
