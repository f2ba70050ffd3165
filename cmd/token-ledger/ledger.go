package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/cheynewallace/tabby"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	tokenrpc "github.com/axiomesh/token-ledger/api/jsonrpc/namespaces/token"
	"github.com/axiomesh/token-ledger/internal/executor"
	"github.com/axiomesh/token-ledger/internal/executor/system/common"
	"github.com/axiomesh/token-ledger/internal/executor/system/token"
	"github.com/axiomesh/token-ledger/internal/ledger"
)

var ledgerGetBlockArgs = struct {
	Number uint64
}{}

var ledgerGetReceiptArgs = struct {
	Hash string
}{}

var ledgerBalanceArgs = struct {
	Accounts cli.StringSlice
}{}

var ledgerAllowanceArgs = struct {
	Owner   string
	Spender string
}{}

var ledgerCMD = &cli.Command{
	Name:  "ledger",
	Usage: "Inspect the local ledger, the node must be stopped",
	Subcommands: []*cli.Command{
		{
			Name:   "meta",
			Usage:  "Show the latest chain meta",
			Action: getLatestChainMeta,
		},
		{
			Name:   "block",
			Usage:  "Show a block, the latest one by default",
			Action: getBlock,
			Flags: []cli.Flag{
				&cli.Uint64Flag{
					Name:        "number",
					Aliases:     []string{"n"},
					Usage:       "block number",
					Destination: &ledgerGetBlockArgs.Number,
				},
			},
		},
		{
			Name:   "receipt",
			Usage:  "Show the receipt of an invocation",
			Action: getReceipt,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "hash",
					Usage:       "invocation hash",
					Destination: &ledgerGetReceiptArgs.Hash,
					Required:    true,
				},
			},
		},
		{
			Name:   "balance",
			Usage:  "Show token balances",
			Action: getBalances,
			Flags: []cli.Flag{
				&cli.StringSliceFlag{
					Name:        "account",
					Aliases:     []string{"a"},
					Usage:       "account address, repeatable",
					Destination: &ledgerBalanceArgs.Accounts,
					Required:    true,
				},
			},
		},
		{
			Name:   "allowance",
			Usage:  "Show the remaining allowance of spender over owner",
			Action: getAllowance,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "owner",
					Destination: &ledgerAllowanceArgs.Owner,
					Required:    true,
				},
				&cli.StringFlag{
					Name:        "spender",
					Destination: &ledgerAllowanceArgs.Spender,
					Required:    true,
				},
			},
		},
	},
}

func openLedger(ctx *cli.Context) (*ledger.Ledger, error) {
	r, err := prepareRepo(ctx)
	if err != nil {
		return nil, err
	}
	lg, err := ledger.New(r)
	if err != nil {
		return nil, fmt.Errorf("init ledger failed: %w", err)
	}
	return lg, nil
}

func getLatestChainMeta(ctx *cli.Context) error {
	lg, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer lg.Close()

	return pretty(lg.ChainLedger.GetChainMeta())
}

func getBlock(ctx *cli.Context) error {
	lg, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer lg.Close()

	number := lg.ChainLedger.GetChainMeta().Height
	if ctx.IsSet("number") {
		number = ledgerGetBlockArgs.Number
	}
	block, err := lg.ChainLedger.GetBlock(number)
	if err != nil {
		return err
	}
	receipts, err := lg.ChainLedger.GetBlockReceipts(number)
	if err != nil {
		return err
	}

	blockInfo := map[string]any{
		"number":       block.Header.Number,
		"hash":         block.Hash().String(),
		"parent_hash":  block.Header.ParentHash.String(),
		"state_root":   block.Header.StateRoot.String(),
		"receipt_root": block.Header.ReceiptRoot.String(),
		"timestamp":    block.Header.Timestamp,
		"invocations": lo.Map(receipts, func(item *ledger.Receipt, index int) string {
			return item.InvocationHash.String()
		}),
		"invocation_count": len(block.Invocations),
	}
	return pretty(blockInfo)
}

func getReceipt(ctx *cli.Context) error {
	lg, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer lg.Close()

	receipt, err := lg.ChainLedger.GetReceipt(ethcommon.HexToHash(ledgerGetReceiptArgs.Hash))
	if err != nil {
		return err
	}
	printReceipt(tokenrpc.NewRPCReceipt(receipt, token.ParsedABI()))
	return nil
}

func getBalances(ctx *cli.Context) error {
	accounts := ledgerBalanceArgs.Accounts.Value()
	for _, account := range accounts {
		if !ethcommon.IsHexAddress(account) {
			return errors.Errorf("invalid account address: %s", account)
		}
	}

	return withOfflineExecutor(ctx, func(exec *executor.BlockExecutor) error {
		t := tabby.NewCustom(newTabWriter())
		t.AddHeader("ACCOUNT", "BALANCE")
		for _, account := range accounts {
			var balance *big.Int
			if err := offlineCall(exec, token.BalanceOfMethod, &balance, ethcommon.HexToAddress(account)); err != nil {
				return err
			}
			t.AddLine(ethcommon.HexToAddress(account).String(), balance.String())
		}
		t.Print()
		return nil
	})
}

func getAllowance(ctx *cli.Context) error {
	if !ethcommon.IsHexAddress(ledgerAllowanceArgs.Owner) || !ethcommon.IsHexAddress(ledgerAllowanceArgs.Spender) {
		return errors.New("invalid owner or spender address")
	}
	return withOfflineExecutor(ctx, func(exec *executor.BlockExecutor) error {
		var allowance *big.Int
		if err := offlineCall(exec, token.AllowanceMethod, &allowance,
			ethcommon.HexToAddress(ledgerAllowanceArgs.Owner), ethcommon.HexToAddress(ledgerAllowanceArgs.Spender)); err != nil {
			return err
		}
		fmt.Println(allowance.String())
		return nil
	})
}

func withOfflineExecutor(ctx *cli.Context, fn func(exec *executor.BlockExecutor) error) error {
	r, err := prepareRepo(ctx)
	if err != nil {
		return err
	}
	lg, err := ledger.New(r)
	if err != nil {
		return fmt.Errorf("init ledger failed: %w", err)
	}
	defer lg.Close()

	if lg.ChainLedger.GetChainMeta().Height == 0 {
		fmt.Fprintln(os.Stderr, "ledger is not initialized, start the node once first")
		return nil
	}
	exec, err := executor.New(r, lg)
	if err != nil {
		return err
	}
	return fn(exec)
}

func offlineCall(exec *executor.BlockExecutor, method string, out any, args ...any) error {
	contractABI := token.ParsedABI()
	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return err
	}
	ret, err := exec.Call(&ledger.Invocation{
		To:   ethcommon.HexToAddress(common.TokenLedgerContractAddr),
		Data: input,
	})
	if err != nil {
		return err
	}
	return contractABI.UnpackIntoInterface(out, method, ret)
}
