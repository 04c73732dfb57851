package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/zots0127/filedrop/pkg/config"
	"github.com/zots0127/filedrop/pkg/logging"
)

type command struct {
	name    string
	summary string
	run     func(args []string) error
}

var commands = []command{
	{"serve", "run the receiver until interrupted", runServe},
	{"send", "send files to a remote receiver", runSend},
	{"fetch", "download a file from a remote receiver", runFetch},
	{"list", "list files in the local store", runList},
	{"delete", "delete files from the local store", runDelete},
	{"shell", "interactive session with one node", runShell},
}

func main() {
	if len(os.Args) < 2 {
		showHelp()
		os.Exit(2)
	}

	name := os.Args[1]
	if name == "help" || name == "-help" || name == "-h" || name == "--help" {
		showHelp()
		return
	}

	for _, cmd := range commands {
		if cmd.name == name {
			if err := cmd.run(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "filedrop %s: %v\n", name, err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
	showHelp()
	os.Exit(2)
}

// commonFlags are accepted by every command
type commonFlags struct {
	configFile string
	dir        string
	logLevel   string
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configFile, "config", "", "Configuration file path")
	fs.StringVar(&f.dir, "dir", "", "Store directory (overrides config)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// setup loads configuration and builds the logger. The returned level
// controls the logger at runtime.
func (f *commonFlags) setup() (*config.ConfigManager, *config.Config, *zap.Logger, zap.AtomicLevel, error) {
	cm, cfg, err := loadConfiguration(f.configFile)
	if err != nil {
		return nil, nil, nil, zap.AtomicLevel{}, err
	}
	if f.dir != "" {
		cfg.Storage.Path = f.dir
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}

	logger, level, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, nil, nil, zap.AtomicLevel{}, fmt.Errorf("failed to create logger: %w", err)
	}
	return cm, cfg, logger, level, nil
}

func loadConfiguration(configFile string) (*config.ConfigManager, *config.Config, error) {
	if configFile == "" {
		for _, file := range []string{"filedrop.yaml", "filedrop.yml", "config.yaml", "config.yml"} {
			if _, err := os.Stat(file); err == nil {
				configFile = file
				break
			}
		}
	} else if _, err := os.Stat(configFile); err != nil {
		return nil, nil, fmt.Errorf("config file: %w", err)
	}

	cm := config.NewConfigManager()
	cfg, err := cm.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cm, cfg, nil
}

func showHelp() {
	fmt.Println("filedrop - send and receive files between peers over HTTP")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("    filedrop <command> [OPTIONS] [ARGS]")
	fmt.Println()
	fmt.Println("COMMANDS:")
	for _, cmd := range commands {
		fmt.Printf("    %-8s %s\n", cmd.name, cmd.summary)
	}
	fmt.Println()
	fmt.Println("COMMON OPTIONS:")
	fmt.Println("    -config string     Configuration file path")
	fmt.Println("    -dir string        Store directory (default \"downloads\")")
	fmt.Println("    -log-level string  Log level: debug, info, warn, error")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("    # Receive files on port 8000")
	fmt.Println("    filedrop serve -port 8000")
	fmt.Println()
	fmt.Println("    # Send a file to a peer")
	fmt.Println("    filedrop send -url http://192.168.1.20:8000 report.pdf")
	fmt.Println()
	fmt.Println("    # Fetch a received file back from a peer")
	fmt.Println("    filedrop fetch -url http://192.168.1.20:8000 -o report.pdf uploaded_file_1700000000")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("    SERVER_HOST, SERVER_PORT, STORAGE_PATH, CLIENT_TIMEOUT,")
	fmt.Println("    HISTORY_BACKEND, LOG_LEVEL, LOG_FORMAT, METRICS_ENABLED,")
	fmt.Println("    METRICS_PORT, MIRROR_ENABLED, MIRROR_BUCKET, MIRROR_ENDPOINT")
}
