package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/zots0127/filedrop/pkg/config"
	"github.com/zots0127/filedrop/pkg/filedrop"
	"github.com/zots0127/filedrop/pkg/logging"
)

func newNode(cfg *config.Config, logger *zap.Logger) (*filedrop.Node, error) {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	return filedrop.New(cfg, filedrop.Options{
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	})
}

func runServe(args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	common.register(fs)
	host := fs.String("host", "", "Listen host (overrides config)")
	port := fs.Int("port", 0, "Listen port (overrides config)")
	debug := fs.Bool("debug", false, "Enable debug mode")
	fs.Parse(args)

	cm, cfg, logger, level, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *debug {
		cfg.Server.Debug = true
	}
	logger.Info("configuration loaded", cfg.LogFields()...)

	node, err := newNode(cfg, logger)
	if err != nil {
		return err
	}

	status, err := node.StartServer(cfg.Server.Port)
	if err != nil {
		node.Close(context.Background())
		return err
	}
	fmt.Printf("Receiving files on http://%s\n", displayAddr(cfg.Server.Host, status.Port))
	fmt.Printf("Store: %s\n", node.StoreDir())

	if cfg.Metrics.Enabled {
		if _, err := node.StartMetrics(); err != nil {
			logger.Error("failed to start metrics listener", zap.Error(err))
		} else {
			fmt.Printf("Metrics: http://%s%s\n", displayAddr(cfg.Server.Host, cfg.Metrics.Port), cfg.Metrics.Path)
		}
	}

	if path := cm.ConfigPath(); path != "" {
		watcher, err := config.NewConfigWatcher(cm, logger.Named("config"))
		if err != nil {
			logger.Warn("config watching disabled", zap.Error(err))
		} else {
			cm.Watch(func(updated *config.Config) {
				if logging.SetLevel(level, updated.Logging.Level) {
					logger.Info("log level changed", zap.String("level", updated.Logging.Level))
				}
			})
			if err := watcher.Start(path); err != nil {
				logger.Warn("config watching disabled", zap.Error(err))
			}
			defer watcher.Stop()
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	return node.Close(ctx)
}

func runSend(args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	common.register(fs)
	url := fs.String("url", "", "Receiver base URL, e.g. http://192.168.1.20:8000")
	timeout := fs.Duration("timeout", 0, "Per-file timeout (overrides config)")
	fs.Parse(args)

	if *url == "" || fs.NArg() == 0 {
		return errors.New("usage: filedrop send -url URL FILE...")
	}

	_, cfg, logger, _, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if *timeout > 0 {
		cfg.Client.Timeout = *timeout
	}

	node, err := newNode(cfg, logger)
	if err != nil {
		return err
	}
	defer node.Close(context.Background())

	failed := 0
	for _, path := range fs.Args() {
		record := node.SendPath(context.Background(), *url, path)
		if record.Succeeded() {
			fmt.Printf("sent %s (%s)\n", record.Filename, humanize.Bytes(uint64(record.Size)))
			continue
		}
		failed++
		fmt.Fprintf(os.Stderr, "failed to send %s: %s\n", record.Filename, record.Error)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, fs.NArg())
	}
	return nil
}

func runFetch(args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	common.register(fs)
	url := fs.String("url", "", "Receiver base URL")
	output := fs.String("o", "", "Output file (default: the remote name)")
	fs.Parse(args)

	if *url == "" || fs.NArg() != 1 {
		return errors.New("usage: filedrop fetch -url URL [-o FILE] NAME")
	}
	name := fs.Arg(0)
	if *output == "" {
		*output = name
	}

	_, cfg, logger, _, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	node, err := newNode(cfg, logger)
	if err != nil {
		return err
	}
	defer node.Close(context.Background())

	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	n, err := node.FetchFile(context.Background(), *url, name, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(*output)
		return err
	}
	fmt.Printf("fetched %s to %s (%s)\n", name, *output, humanize.Bytes(uint64(n)))
	return nil
}

func runList(args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("list", flag.ExitOnError)
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
	defer node.Close(context.Background())

	files, err := node.ListFiles(context.Background())
	if err != nil {
		return err
	}
	printFiles(os.Stdout, files)
	return nil
}

func runDelete(args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	common.register(fs)
	fs.Parse(args)

	if fs.NArg() == 0 {
		return errors.New("usage: filedrop delete NAME...")
	}

	_, cfg, logger, _, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	node, err := newNode(cfg, logger)
	if err != nil {
		return err
	}
	defer node.Close(context.Background())

	missing := 0
	for _, name := range fs.Args() {
		if node.DeleteFile(context.Background(), name) {
			fmt.Printf("deleted %s\n", name)
			continue
		}
		missing++
		fmt.Fprintf(os.Stderr, "could not delete %s\n", name)
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d files not deleted", missing, fs.NArg())
	}
	return nil
}

func printFiles(w io.Writer, files []filedrop.StoredFile) {
	if len(files) == 0 {
		fmt.Fprintln(w, "no files")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, humanize.Bytes(uint64(f.Size)), humanize.Time(f.ModifiedAt))
	}
	tw.Flush()
}

func printHistory(w io.Writer, records []filedrop.TransferRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no transfers")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTION\tFILE\tOUTCOME\tDETAIL")
	for _, r := range records {
		detail := r.URL
		if r.Error != "" {
			detail = r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Format("15:04:05"), r.Action, r.Filename, r.Outcome, detail)
	}
	tw.Flush()
}

func displayAddr(host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("%s:%d", host, port)
}
