package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/cheynewallace/tabby"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	tokenrpc "github.com/axiomesh/token-ledger/api/jsonrpc/namespaces/token"
	"github.com/axiomesh/token-ledger/internal/ledger"
)

var tokenArgs = struct {
	RPC     string
	From    string
	To      string
	Owner   string
	Spender string
	Value   string
}{}

var rpcFlag = &cli.StringFlag{
	Name:        "rpc",
	Aliases:     []string{"r"},
	Destination: &tokenArgs.RPC,
	Usage:       "rpc server addr",
	Value:       "http://127.0.0.1:8881",
	EnvVars:     []string{"TOKEN_LEDGER_RPC"},
}

func addressFlag(name string, dest *string, usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:        name,
		Destination: dest,
		Usage:       usage,
		Required:    true,
	}
}

var valueFlag = &cli.StringFlag{
	Name:        "value",
	Aliases:     []string{"v"},
	Destination: &tokenArgs.Value,
	Usage:       "amount in base units, decimal or 0x hex",
	Required:    true,
}

var tokenCMD = &cli.Command{
	Name:  "token",
	Usage: "Interact with a running node over json-rpc",
	Subcommands: []*cli.Command{
		{
			Name:   "info",
			Usage:  "Show token metadata and chain meta",
			Action: tokenInfo,
			Flags:  []cli.Flag{rpcFlag},
		},
		{
			Name:   "balance",
			Usage:  "Show the balance of an account",
			Action: tokenBalance,
			Flags: []cli.Flag{
				rpcFlag,
				addressFlag("account", &tokenArgs.Owner, "account address"),
			},
		},
		{
			Name:   "allowance",
			Usage:  "Show the remaining allowance of spender over owner",
			Action: tokenAllowance,
			Flags: []cli.Flag{
				rpcFlag,
				addressFlag("owner", &tokenArgs.Owner, "owner address"),
				addressFlag("spender", &tokenArgs.Spender, "spender address"),
			},
		},
		{
			Name:   "transfer",
			Usage:  "Transfer tokens from the caller",
			Action: tokenTransfer,
			Flags: []cli.Flag{
				rpcFlag,
				addressFlag("from", &tokenArgs.From, "caller address"),
				addressFlag("to", &tokenArgs.To, "receiver address"),
				valueFlag,
			},
		},
		{
			Name:   "approve",
			Usage:  "Set the allowance of spender over the caller",
			Action: tokenApprove,
			Flags: []cli.Flag{
				rpcFlag,
				addressFlag("owner", &tokenArgs.Owner, "caller address"),
				addressFlag("spender", &tokenArgs.Spender, "spender address"),
				valueFlag,
			},
		},
		{
			Name:   "transfer-from",
			Usage:  "Transfer tokens on behalf of owner using the caller's allowance",
			Action: tokenTransferFrom,
			Flags: []cli.Flag{
				rpcFlag,
				addressFlag("spender", &tokenArgs.Spender, "caller address"),
				addressFlag("from", &tokenArgs.From, "owner address"),
				addressFlag("to", &tokenArgs.To, "receiver address"),
				valueFlag,
			},
		},
	},
}

// dial retries until the node answers, a freshly started node may still be opening its ledger.
func dial(ctx context.Context) (*rpc.Client, error) {
	var client *rpc.Client
	err := retry.Retry(func(attempt uint) error {
		c, err := rpc.DialContext(ctx, tokenArgs.RPC)
		if err != nil {
			return err
		}
		var meta tokenrpc.RPCChainMeta
		if err := c.CallContext(ctx, &meta, "token_chainMeta"); err != nil {
			c.Close()
			return err
		}
		client = c
		return nil
	},
		strategy.Limit(5),
		strategy.Backoff(backoff.Fibonacci(200*time.Millisecond)),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", tokenArgs.RPC)
	}
	return client, nil
}

func parseAddress(name, s string) (ethcommon.Address, error) {
	if !ethcommon.IsHexAddress(s) {
		return ethcommon.Address{}, errors.Errorf("invalid %s address: %s", name, s)
	}
	return ethcommon.HexToAddress(s), nil
}

func parseValue(s string) (*hexutil.Big, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok || v.Sign() < 0 || v.BitLen() > 256 {
		return nil, errors.Errorf("invalid value: %s", s)
	}
	return (*hexutil.Big)(v), nil
}

func tokenInfo(ctx *cli.Context) error {
	client, err := dial(ctx.Context)
	if err != nil {
		return err
	}
	defer client.Close()

	var (
		name, symbol string
		decimals     hexutil.Uint
		owner        ethcommon.Address
		supply       hexutil.Big
		meta         tokenrpc.RPCChainMeta
	)
	batch := []rpc.BatchElem{
		{Method: "token_name", Result: &name},
		{Method: "token_symbol", Result: &symbol},
		{Method: "token_decimals", Result: &decimals},
		{Method: "token_owner", Result: &owner},
		{Method: "token_totalSupply", Result: &supply},
		{Method: "token_chainMeta", Result: &meta},
	}
	if err := client.BatchCallContext(ctx.Context, batch); err != nil {
		return err
	}
	for _, elem := range batch {
		if elem.Error != nil {
			return errors.Wrap(elem.Error, elem.Method)
		}
	}

	t := tabby.NewCustom(newTabWriter())
	t.AddLine("Name", name)
	t.AddLine("Symbol", symbol)
	t.AddLine("Decimals", uint(decimals))
	t.AddLine("Owner", owner.String())
	t.AddLine("TotalSupply", supply.ToInt().String())
	t.AddLine("Height", uint64(meta.Height))
	t.AddLine("BlockHash", meta.BlockHash.String())
	t.AddLine("Status", meta.Status)
	t.Print()
	return nil
}

func tokenBalance(ctx *cli.Context) error {
	account, err := parseAddress("account", tokenArgs.Owner)
	if err != nil {
		return err
	}
	client, err := dial(ctx.Context)
	if err != nil {
		return err
	}
	defer client.Close()

	var balance hexutil.Big
	if err := client.CallContext(ctx.Context, &balance, "token_balanceOf", account); err != nil {
		return err
	}
	fmt.Println(balance.ToInt().String())
	return nil
}

func tokenAllowance(ctx *cli.Context) error {
	owner, err := parseAddress("owner", tokenArgs.Owner)
	if err != nil {
		return err
	}
	spender, err := parseAddress("spender", tokenArgs.Spender)
	if err != nil {
		return err
	}
	client, err := dial(ctx.Context)
	if err != nil {
		return err
	}
	defer client.Close()

	var allowance hexutil.Big
	if err := client.CallContext(ctx.Context, &allowance, "token_allowance", owner, spender); err != nil {
		return err
	}
	fmt.Println(allowance.ToInt().String())
	return nil
}

func tokenTransfer(ctx *cli.Context) error {
	from, err := parseAddress("from", tokenArgs.From)
	if err != nil {
		return err
	}
	to, err := parseAddress("to", tokenArgs.To)
	if err != nil {
		return err
	}
	value, err := parseValue(tokenArgs.Value)
	if err != nil {
		return err
	}
	return send(ctx, "token_transfer", from, to, value)
}

func tokenApprove(ctx *cli.Context) error {
	owner, err := parseAddress("owner", tokenArgs.Owner)
	if err != nil {
		return err
	}
	spender, err := parseAddress("spender", tokenArgs.Spender)
	if err != nil {
		return err
	}
	value, err := parseValue(tokenArgs.Value)
	if err != nil {
		return err
	}
	return send(ctx, "token_approve", owner, spender, value)
}

func tokenTransferFrom(ctx *cli.Context) error {
	spender, err := parseAddress("spender", tokenArgs.Spender)
	if err != nil {
		return err
	}
	from, err := parseAddress("from", tokenArgs.From)
	if err != nil {
		return err
	}
	to, err := parseAddress("to", tokenArgs.To)
	if err != nil {
		return err
	}
	value, err := parseValue(tokenArgs.Value)
	if err != nil {
		return err
	}
	return send(ctx, "token_transferFrom", spender, from, to, value)
}

func send(ctx *cli.Context, method string, args ...any) error {
	client, err := dial(ctx.Context)
	if err != nil {
		return err
	}
	defer client.Close()

	var receipt tokenrpc.RPCReceipt
	if err := client.CallContext(ctx.Context, &receipt, method, args...); err != nil {
		return err
	}
	printReceipt(&receipt)
	if receipt.Status != hexutil.Uint64(ledger.ReceiptSuccess) {
		return errors.New("invocation reverted")
	}
	return nil
}

func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func printReceipt(receipt *tokenrpc.RPCReceipt) {
	status := color.GreenString("success")
	if receipt.Status != hexutil.Uint64(ledger.ReceiptSuccess) {
		status = color.RedString("failed")
	}

	t := tabby.NewCustom(newTabWriter())
	t.AddLine("Hash", receipt.InvocationHash.String())
	t.AddLine("Block", uint64(receipt.BlockNumber))
	t.AddLine("Index", uint64(receipt.Index))
	t.AddLine("Status", status)
	if receipt.RevertReason != "" {
		t.AddLine("Revert", receipt.RevertReason)
	}
	if receipt.Err != "" {
		t.AddLine("Error", receipt.Err)
	}
	t.AddLine("Logs", len(receipt.Logs))
	t.Print()

	if len(receipt.Logs) == 0 {
		return
	}
	logs := tabby.NewCustom(newTabWriter())
	logs.AddHeader("INDEX", "ADDRESS", "TOPIC0", "DATA")
	for _, log := range receipt.Logs {
		topic := ""
		if len(log.Topics) > 0 {
			topic = log.Topics[0].String()
		}
		logs.AddLine(log.Index, log.Address.String(), topic, hexutil.Encode(log.Data))
	}
	logs.Print()
}
