// catalyst-wallet is a command-line wallet for the Catalyst network.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/catalyst-tech/catalyst-wallet/config"
	"github.com/catalyst-tech/catalyst-wallet/internal/core"
	"github.com/catalyst-tech/catalyst-wallet/internal/log"
	"github.com/catalyst-tech/catalyst-wallet/internal/storage"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	dataDir := config.DefaultDataDir()
	rpcURL := ""
	logLevel := ""

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--log-level" && len(args) > 1:
			logLevel = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--log-level="):
			logLevel = args[0][len("--log-level="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg := config.Default()
	cfg.DataDir = dataDir

	values, err := config.LoadFile(cfg.ConfigFile())
	if err != nil {
		fatal("load config: %v", err)
	}
	if err := config.ApplyFileConfig(cfg, values); err != nil {
		fatal("apply config: %v", err)
	}
	if rpcURL != "" {
		// A single --rpc endpoint overrides the configured rotation.
		cfg.Network.RPCURLs = []string{rpcURL}
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := config.Validate(cfg); err != nil {
		fatal("config: %v", err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	if err := os.MkdirAll(cfg.StoreDir(), 0700); err != nil {
		fatal("create data directory: %v", err)
	}
	db, err := storage.NewBadger(cfg.StoreDir())
	if err != nil {
		fatal("open store: %v", err)
	}
	defer db.Close()

	c, err := core.New(cfg, db)
	if err != nil {
		fatal("init wallet: %v", err)
	}
	defer c.Lock()

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "new":
		cmdNew(c, cmdArgs)
	case "restore":
		cmdRestore(c, cmdArgs)
	case "import":
		cmdImport(c, cmdArgs)
	case "accounts":
		cmdAccounts(c)
	case "newaccount":
		cmdNewAccount(c)
	case "select":
		cmdSelect(c, cmdArgs)
	case "balance":
		cmdBalance(c)
	case "send":
		cmdSend(c, cmdArgs)
	case "txs":
		cmdTxs(c)
	case "status":
		cmdStatus(c, cfg)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: catalyst-wallet [global flags] <command> [flags]

Global flags:
  --datadir <path>    Data directory (default: ~/.catalyst-wallet)
  --rpc <url>         Use a single RPC endpoint instead of the configured list
  --log-level <lvl>   debug, info, warn or error

Commands:
  new --name <n>                  Create a new wallet (prints the mnemonic once)
  restore --mnemonic "..." [--passphrase <p>] [--accounts <n>]
                                  Restore a wallet from a recovery phrase
  import --key <hex>              Import a wallet from a raw private key
  accounts                        List accounts
  newaccount                      Derive and select the next account
  select <account-id>             Switch the active account
  balance                         Show the selected account's balance
  send --to <addr> --amount <n>   Send value to an address
  txs                             Show tracked transactions and history
  status                          Show network and endpoint status
`)
}

// ── wallet lifecycle ────────────────────────────────────────────────────

func cmdNew(c *core.Core, args []string) {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	name := fs.String("name", "Main", "Wallet name")
	fs.Parse(args)

	password := readNewPassword()
	mnemonic, err := c.CreateFromMnemonic(context.Background(), *name, password)
	if err != nil {
		fatal("create wallet: %v", err)
	}

	fmt.Println("Recovery phrase (write this down, it is shown only once!):")
	fmt.Printf("  %s\n\n", mnemonic)

	acct, err := c.Selected()
	if err != nil {
		fatal("read account: %v", err)
	}
	fmt.Printf("Wallet created: %s\n", *name)
	fmt.Printf("Address: %s\n", acct.Address)
}

func cmdRestore(c *core.Core, args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	name := fs.String("name", "Main", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 recovery phrase")
	passphrase := fs.String("passphrase", "", "Optional BIP-39 passphrase")
	accounts := fs.Uint("accounts", 1, "Number of accounts to derive")
	fs.Parse(args)

	if *mnemonic == "" {
		fatal(`Usage: catalyst-wallet restore --mnemonic "word1 word2 ..."`)
	}

	password := readNewPassword()
	if err := c.Restore(context.Background(), *name, *mnemonic, *passphrase, password, uint32(*accounts)); err != nil {
		fatal("restore wallet: %v", err)
	}

	accts, err := c.Accounts()
	if err != nil {
		fatal("read accounts: %v", err)
	}
	fmt.Printf("Wallet restored: %s (%d accounts)\n", *name, len(accts))
	for _, a := range accts {
		fmt.Printf("  %s  %s\n", a.ID, a.Address)
	}
}

func cmdImport(c *core.Core, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	name := fs.String("name", "Imported", "Wallet name")
	key := fs.String("key", "", "Private key (0x-prefixed 32-byte hex)")
	fs.Parse(args)

	if *key == "" {
		fatal("Usage: catalyst-wallet import --key <hex>")
	}

	password := readNewPassword()
	if err := c.ImportPrivateKey(context.Background(), *name, *key, password); err != nil {
		fatal("import key: %v", err)
	}

	acct, err := c.Selected()
	if err != nil {
		fatal("read account: %v", err)
	}
	fmt.Printf("Wallet imported: %s\n", *name)
	fmt.Printf("Address: %s\n", acct.Address)
}

// ── account commands ────────────────────────────────────────────────────

func cmdAccounts(c *core.Core) {
	unlock(c)
	accts, err := c.Accounts()
	if err != nil {
		fatal("read accounts: %v", err)
	}
	selected, err := c.Selected()
	if err != nil {
		fatal("read selection: %v", err)
	}
	for _, a := range accts {
		marker := " "
		if a.ID == selected.ID {
			marker = "*"
		}
		label := a.Label
		if label == "" {
			label = "-"
		}
		fmt.Printf("%s %s  %s  %s\n", marker, a.ID, a.Address, label)
	}
}

func cmdNewAccount(c *core.Core) {
	unlock(c)
	acct, err := c.AddAccount()
	if err != nil {
		fatal("add account: %v", err)
	}
	fmt.Printf("Account created and selected: %s\n", acct.ID)
	fmt.Printf("Address: %s\n", acct.Address)
}

func cmdSelect(c *core.Core, args []string) {
	if len(args) < 1 {
		fatal("Usage: catalyst-wallet select <account-id>")
	}
	unlock(c)
	if err := c.SelectAccount(args[0]); err != nil {
		fatal("select account: %v", err)
	}
	acct, err := c.Selected()
	if err != nil {
		fatal("read account: %v", err)
	}
	fmt.Printf("Selected: %s (%s)\n", acct.ID, acct.Address)
}

// ── chain commands ──────────────────────────────────────────────────────

func cmdBalance(c *core.Core) {
	unlock(c)
	acct, err := c.Selected()
	if err != nil {
		fatal("read account: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	bal, err := c.Balance(ctx)
	if err != nil {
		fatal("get balance: %v", err)
	}
	fmt.Printf("Address: %s\n", acct.Address)
	fmt.Printf("Balance: %s\n", bal)
}

func cmdSend(c *core.Core, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	to := fs.String("to", "", "Recipient address (0x-prefixed 32-byte hex)")
	amountStr := fs.String("amount", "", "Amount in base units")
	fs.Parse(args)

	if *to == "" || *amountStr == "" {
		fatal("Usage: catalyst-wallet send --to <addr> --amount <n>")
	}
	amount, err := strconv.ParseInt(*amountStr, 10, 64)
	if err != nil || amount <= 0 {
		fatal("invalid amount %q", *amountStr)
	}

	unlock(c)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	res, err := c.SendWithRetry(ctx, *to, amount)
	if err != nil {
		fatal("send: %v", err)
	}
	fmt.Printf("Submitted: %s\n", res.LocalID)
	if res.ServerID != "" && res.ServerID != res.LocalID {
		fmt.Printf("Server id: %s\n", res.ServerID)
	}
	fmt.Printf("Nonce:     %d\n", res.Nonce)
	fmt.Printf("Fees:      %d\n", res.Fees)
}

func cmdTxs(c *core.Core) {
	unlock(c)
	acct, err := c.Selected()
	if err != nil {
		fatal("read account: %v", err)
	}

	tracked := c.Tracker().Tracked(acct.Address)
	if len(tracked) == 0 {
		fmt.Println("No tracked transactions.")
	} else {
		fmt.Printf("Tracked: %d\n", len(tracked))
		for _, e := range tracked {
			id := e.ServerID
			if id == "" {
				id = e.LocalID
			}
			created := time.UnixMilli(e.Created).UTC().Format("2006-01-02 15:04:05")
			fmt.Printf("  %s  %-10s %s\n", id, e.Status, created)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	rows, err := c.History(ctx, acct.Address, 50)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: history unavailable: %v\n", err)
		return
	}
	if len(rows) == 0 {
		fmt.Println("No chain history.")
		return
	}
	fmt.Printf("History: %d\n", len(rows))
	for _, r := range rows {
		fmt.Printf("  %s  %-10s %s -> %s  %s\n", r.TxID, r.Status, r.From, r.To, r.Amount)
	}
}

func cmdStatus(c *core.Core, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("Network:  %s (chain id %d)\n", cfg.Network.NetworkID, cfg.Network.ChainID)
	fmt.Printf("Genesis:  %s\n", cfg.Network.GenesisHash)

	if err := c.VerifyChainIdentity(ctx); err != nil {
		fmt.Printf("Identity: MISMATCH (%v)\n", err)
		os.Exit(1)
	}
	fmt.Printf("Identity: verified\n")
	fmt.Printf("Endpoint: %s\n", c.RPC().LastGood())

	has, err := c.HasWallet()
	if err != nil {
		fatal("check vault: %v", err)
	}
	if has {
		fmt.Println("Vault:    present")
	} else {
		fmt.Println("Vault:    none (run 'catalyst-wallet new')")
	}
}

// ── helpers ─────────────────────────────────────────────────────────────

// unlock prompts for the vault password and opens the session.
func unlock(c *core.Core) {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if err := c.Unlock(context.Background(), string(password)); err != nil {
		fatal("unlock: %v", err)
	}
}

// readNewPassword prompts twice for a fresh vault password.
func readNewPassword() string {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	return string(password)
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
