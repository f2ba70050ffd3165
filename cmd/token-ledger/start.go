package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/axiomesh/token-ledger/internal/app"
	"github.com/axiomesh/token-ledger/pkg/loggers"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

func start(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}

	if !fileExist(filepath.Join(p, repo.CfgFileName)) {
		fmt.Println("token-ledger is not initialized, please execute 'config generate' first")
		return nil
	}

	r, err := repo.Load(p)
	if err != nil {
		return err
	}

	appCtx, cancel := context.WithCancel(ctx.Context)
	if err := loggers.Initialize(r, true); err != nil {
		cancel()
		return err
	}

	log := loggers.Logger(loggers.App)
	printVersion(func(c string) {
		log.Info(c)
	})

	var wg sync.WaitGroup
	err = func() error {
		if err := repo.WritePid(r.RepoRoot); err != nil {
			return fmt.Errorf("write pid error: %s", err)
		}

		tl, err := app.NewTokenLedger(r, appCtx, cancel)
		if err != nil {
			return fmt.Errorf("init token-ledger failed: %w", err)
		}
		r.PrintNodeInfo(func(c string) {
			log.Info(c)
		})

		wg.Add(1)
		handleShutdown(tl, &wg)

		if err := tl.Start(); err != nil {
			return fmt.Errorf("start token-ledger failed: %w", err)
		}

		return nil
	}()
	if err != nil {
		cancel()
		log.WithField("err", err).Error("Startup failed")
		return err
	}

	wg.Wait()

	if err := repo.RemovePID(r.RepoRoot); err != nil {
		log.WithField("err", err).Error("Remove pid failed")
		return fmt.Errorf("remove pid file error: %s", err)
	}

	return nil
}

func handleShutdown(node *app.TokenLedger, wg *sync.WaitGroup) {
	var stop = make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGTERM)
	signal.Notify(stop, syscall.SIGINT)

	go func() {
		<-stop
		fmt.Println("received interrupt signal, shutting down...")
		if err := node.Stop(); err != nil {
			panic(err)
		}
		wg.Done()
	}()
}
