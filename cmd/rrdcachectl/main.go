// rrdcachectl is the operator tool for rrdcached: "flush" and "list"
// drive a running daemon live over its local control socket, while
// "tail" and "history" read the durable audit trail rrdcached writes
// under <data_dir>/audit -- the Parquet files a running daemon's
// audit.Flusher has already produced -- so those two only ever see
// events that have made it past the in-memory ring and out to disk.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"

	"github.com/xtxerr/rrdcached/internal/auditquery"
	"github.com/xtxerr/rrdcached/internal/config"
	"github.com/xtxerr/rrdcached/internal/control"
)

func main() {
	cfgPath := flag.String("config", "/etc/rrdcached/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.DefaultConfig()
		} else {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}

	svc, err := auditquery.New(cfg.AuditDir(), "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "open audit trail: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	c := &cli{svc: svc, ctl: control.NewClient(cfg.ControlSocket)}

	if args := flag.Args(); len(args) > 0 {
		c.dispatch(strings.Join(args, " "))
		return
	}

	prompt.New(c.executor, c.completer, prompt.OptionPrefix("rrdcachectl> ")).Run()
}

type cli struct {
	svc *auditquery.Service
	ctl *control.Client
}

func (c *cli) executor(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if line == "exit" || line == "quit" {
		os.Exit(0)
	}
	c.dispatch(line)
}

func (c *cli) dispatch(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "flush":
		c.flush(fields[1:])
	case "list":
		c.list()
	case "tail":
		c.tail(fields[1:])
	case "history":
		c.history(strings.TrimSpace(strings.TrimPrefix(line, fields[0])))
	case "stats":
		c.stats()
	default:
		fmt.Printf("unknown command %q (try flush, list, tail, history, stats)\n", fields[0])
	}
}

// flush [identifier] drives the daemon's live flush over the control
// socket: a bare "flush" flushes every pending entry, "flush
// <identifier>" targets one.
func (c *cli) flush(args []string) {
	identifier := ""
	if len(args) > 0 {
		identifier = args[0]
	}
	if err := c.ctl.Flush(identifier); err != nil {
		fmt.Printf("flush: %v\n", err)
		return
	}
	fmt.Println("OK")
}

// list prints the filenames currently sitting in the daemon's live
// dispatch queue.
func (c *cli) list() {
	filenames, err := c.ctl.List()
	if err != nil {
		fmt.Printf("list: %v\n", err)
		return
	}
	if len(filenames) == 0 {
		fmt.Println("(queue empty)")
		return
	}
	for _, filename := range filenames {
		fmt.Println(filename)
	}
}

// tail [filename] [n] prints the n most recent audit rows, optionally
// restricted to one RRD filename.
func (c *cli) tail(args []string) {
	filename := ""
	n := 20
	if len(args) > 0 {
		filename = args[0]
	}
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil {
			n = v
		}
	}

	rows, err := c.svc.Tail(context.Background(), filename, n)
	if err != nil {
		fmt.Printf("tail: %v\n", err)
		return
	}
	printRows(rows)
}

// history <sql> runs an arbitrary read-only query over the audit
// trail's Parquet files.
func (c *cli) history(query string) {
	if query == "" {
		fmt.Println("usage: history <sql>")
		return
	}
	rows, err := c.svc.ExecuteSQL(context.Background(), query)
	if err != nil {
		fmt.Printf("history: %v\n", err)
		return
	}
	printRows(rows)
}

func (c *cli) stats() {
	if live, err := c.ctl.Stats(); err == nil {
		fmt.Println(live)
	} else {
		fmt.Printf("stats: daemon unreachable (%v)\n", err)
	}

	s := c.svc.Stats()
	fmt.Printf("queries_executed=%d errors=%d\n", s.QueriesExecuted, s.Errors)
}

func printRows(rows []map[string]any) {
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return
	}
	for _, row := range rows {
		fmt.Println(row)
	}
}

func (c *cli) completer(d prompt.Document) []prompt.Suggest {
	suggestions := []prompt.Suggest{
		{Text: "flush", Description: "flush one identifier, or all pending entries"},
		{Text: "list", Description: "list filenames queued on the live daemon"},
		{Text: "tail", Description: "show recent audit events"},
		{Text: "history", Description: "run a SQL query over the audit trail"},
		{Text: "stats", Description: "live daemon and audit-query counters"},
		{Text: "exit", Description: "leave the shell"},
	}
	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}
