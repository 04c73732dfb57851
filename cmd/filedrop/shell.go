package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/zots0127/filedrop/pkg/filedrop"
)

const shellHelp = `commands:
  start [port]       start the receiver (default port from config)
  stop               stop the receiver
  status             show whether the receiver is running
  send URL PATH...   send local files to a receiver
  list               list received files
  delete NAME...     delete received files
  history            show transfers of this session
  clear              clear the transfer history
  help               show this help
  quit               stop everything and exit
`

func runShell(args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	common.register(fs)
	fs.Parse(args)

	_, cfg, logger, _, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	node, err := newNode(cfg, logger)
	if err != nil {
		return err
	}

	sh := &shell{node: node, out: os.Stdout, defaultPort: cfg.Server.Port, prompt: "filedrop> "}
	sh.run(context.Background(), os.Stdin)
	return node.Close(context.Background())
}

// shell drives one node from line-oriented input
type shell struct {
	node        *filedrop.Node
	out         io.Writer
	defaultPort int
	prompt      string
}

func (s *shell) run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(s.out, s.prompt)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && !s.exec(ctx, fields[0], fields[1:]) {
			return
		}
		fmt.Fprint(s.out, s.prompt)
	}
}

// exec runs one command and reports whether the session continues
func (s *shell) exec(ctx context.Context, name string, args []string) bool {
	switch name {
	case "start":
		port := s.defaultPort
		if len(args) > 0 {
			p, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Fprintf(s.out, "invalid port %q\n", args[0])
				return true
			}
			port = p
		}
		status, err := s.node.StartServer(port)
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			return true
		}
		fmt.Fprintf(s.out, "server running on port %d\n", status.Port)

	case "stop":
		if err := s.node.StopServer(ctx); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			return true
		}
		fmt.Fprintln(s.out, "server stopped")

	case "status":
		status := s.node.ServerStatus()
		if status.Running {
			fmt.Fprintf(s.out, "running on %s\n", status.Address)
		} else {
			fmt.Fprintln(s.out, "stopped")
		}

	case "send":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "usage: send URL PATH...")
			return true
		}
		for _, path := range args[1:] {
			record := s.node.SendPath(ctx, args[0], path)
			if record.Succeeded() {
				fmt.Fprintf(s.out, "sent %s (%s)\n", record.Filename, humanize.Bytes(uint64(record.Size)))
			} else {
				fmt.Fprintf(s.out, "failed to send %s: %s\n", record.Filename, record.Error)
			}
		}

	case "list", "ls":
		files, err := s.node.ListFiles(ctx)
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			return true
		}
		printFiles(s.out, files)

	case "delete", "rm":
		if len(args) == 0 {
			fmt.Fprintln(s.out, "usage: delete NAME...")
			return true
		}
		for _, name := range args {
			if s.node.DeleteFile(ctx, name) {
				fmt.Fprintf(s.out, "deleted %s\n", name)
			} else {
				fmt.Fprintf(s.out, "could not delete %s\n", name)
			}
		}

	case "history":
		printHistory(s.out, s.node.History())

	case "clear":
		s.node.ClearHistory()
		fmt.Fprintln(s.out, "history cleared")

	case "help", "?":
		fmt.Fprint(s.out, shellHelp)

	case "quit", "exit":
		return false

	default:
		fmt.Fprintf(s.out, "unknown command %q, type help\n", name)
	}
	return true
}
