// Package filedrop is the embedding API of a peer: one receiver server, one
// store directory and one transfer log, plus a client for sending to peers.
package filedrop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/zots0127/filedrop/internal/adapter/handler"
	"github.com/zots0127/filedrop/internal/domain/entities"
	"github.com/zots0127/filedrop/internal/domain/repository"
	"github.com/zots0127/filedrop/internal/infrastructure/mirror"
	infra "github.com/zots0127/filedrop/internal/infrastructure/repository"
	"github.com/zots0127/filedrop/internal/usecase"
	"github.com/zots0127/filedrop/pkg/client"
	"github.com/zots0127/filedrop/pkg/config"
	"github.com/zots0127/filedrop/pkg/metrics"
	"github.com/zots0127/filedrop/pkg/middleware"
	"github.com/zots0127/filedrop/pkg/server"
)

// Re-exported so embedders need not import internal packages.
type (
	StoredFile     = entities.StoredFile
	TransferRecord = entities.TransferRecord
	ServerStatus   = entities.ServerStatus
)

var (
	ErrNotFound = repository.ErrNotFound
	ErrBind     = repository.ErrBind
	ErrNetwork  = repository.ErrNetwork
	ErrIO       = repository.ErrIO
)

// Node wires the store, transfer log, receiver server and sender client of
// a single peer. All state is owned by the Node; separate Nodes share nothing.
type Node struct {
	config     *config.Config
	logger     *zap.Logger
	store      *infra.LocalFileStore
	history    repository.TransferLog
	client     *client.Client
	transfers  *usecase.TransferUseCase
	collector  *metrics.MetricsCollector
	receiver   *server.Controller
	metricsSrv *server.Controller
}

// Options carries optional collaborators for New
type Options struct {
	Logger   *zap.Logger
	Registry *prometheus.Registry
	// Replicator overrides the mirror built from configuration
	Replicator repository.Replicator
}

// New builds a stopped Node from cfg
func New(cfg *config.Config, opts Options) (*Node, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := infra.NewLocalFileStore(cfg.Storage.Path, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	history, err := newTransferLog(cfg.History)
	if err != nil {
		return nil, err
	}

	replicator := opts.Replicator
	if replicator == nil && cfg.Mirror.Enabled {
		m, err := mirror.NewS3Mirror(mirror.Config{
			Endpoint:       cfg.Mirror.Endpoint,
			Region:         cfg.Mirror.Region,
			Bucket:         cfg.Mirror.Bucket,
			Prefix:         cfg.Mirror.Prefix,
			AccessKey:      cfg.Mirror.AccessKey,
			SecretKey:      cfg.Mirror.SecretKey,
			ForcePathStyle: cfg.Mirror.ForcePathStyle,
		})
		if err != nil {
			history.Close()
			return nil, fmt.Errorf("failed to create mirror: %w", err)
		}
		replicator = m
	}

	collector := metrics.NewMetricsCollector(&metrics.Config{Namespace: cfg.Metrics.Namespace}, opts.Registry)
	sender := client.New(cfg.Client.Timeout, logger.Named("client"))

	useCaseOpts := []usecase.Option{usecase.WithMetrics(collector)}
	if replicator != nil {
		useCaseOpts = append(useCaseOpts, usecase.WithReplicator(replicator))
	}
	transfers := usecase.NewTransferUseCase(store, history, sender, logger.Named("transfers"), useCaseOpts...)

	n := &Node{
		config:    cfg,
		logger:    logger,
		store:     store,
		history:   history,
		client:    sender,
		transfers: transfers,
		collector: collector,
	}

	serverConfig := server.Config{
		Host:            cfg.Server.Host,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	n.receiver = server.NewController(n.Router(), serverConfig, logger.Named("receiver"))
	n.receiver.OnStateChange(func(status entities.ServerStatus) {
		collector.SetServerRunning(status.Running)
	})

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, collector.Handler())
		n.metricsSrv = server.NewController(mux, serverConfig, logger.Named("metrics"))
	}

	return n, nil
}

func newTransferLog(cfg config.HistoryConfig) (repository.TransferLog, error) {
	switch cfg.Backend {
	case "", "memory":
		return infra.NewMemoryTransferLog(), nil
	case "sqlite":
		return infra.NewSQLiteTransferLog(cfg.Database)
	default:
		return nil, fmt.Errorf("unknown history backend: %s", cfg.Backend)
	}
}

// Router builds the receiver's HTTP handler. The gin mode is process-wide
// and left to the caller.
func (n *Node) Router() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = n.config.Server.MaxUploadMemory
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.NewLogging(nil, n.logger.Named("http")).Middleware())
	router.Use(n.collector.Middleware())

	handler.NewReceiverHandler(n.transfers, n.logger.Named("receiver"), n.config.Server.MaxUploadMemory).
		RegisterRoutes(router)
	return router
}

// StartServer starts the receiver on port. It is a no-op while running.
func (n *Node) StartServer(port int) (ServerStatus, error) {
	return n.receiver.Start(port)
}

// StopServer stops the receiver. It is a no-op while stopped.
func (n *Node) StopServer(ctx context.Context) error {
	return n.receiver.Stop(ctx)
}

// ServerStatus reports whether the receiver is running
func (n *Node) ServerStatus() ServerStatus {
	return n.receiver.Status()
}

// StartMetrics starts the metrics listener if metrics are enabled
func (n *Node) StartMetrics() (ServerStatus, error) {
	if n.metricsSrv == nil {
		return ServerStatus{}, nil
	}
	return n.metricsSrv.Start(n.config.Metrics.Port)
}

// SendFile pushes data to the receiver at url and records the outcome
func (n *Node) SendFile(ctx context.Context, url, filename string, data io.Reader) TransferRecord {
	return n.transfers.Send(ctx, url, filename, data)
}

// SendPath sends a local file under its base name
func (n *Node) SendPath(ctx context.Context, url, path string) TransferRecord {
	filename := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		return n.transfers.RecordSendFailure(url, filename, fmt.Errorf("%w: %w", ErrIO, err))
	}
	defer f.Close()
	return n.transfers.Send(ctx, url, filename, f)
}

// ListFiles lists the store, most recently modified first
func (n *Node) ListFiles(ctx context.Context) ([]StoredFile, error) {
	return n.transfers.List(ctx)
}

// DeleteFile removes a stored file and reports whether it was removed
func (n *Node) DeleteFile(ctx context.Context, name string) bool {
	return n.transfers.Delete(ctx, name)
}

// OpenFile opens a stored file for local reading
func (n *Node) OpenFile(ctx context.Context, name string) (io.ReadCloser, *StoredFile, error) {
	return n.transfers.Open(ctx, name)
}

// FetchFile downloads name from a remote receiver into w
func (n *Node) FetchFile(ctx context.Context, url, name string, w io.Writer) (int64, error) {
	return n.client.Download(ctx, url, name, w)
}

// History returns the transfer records in completion order
func (n *Node) History() []TransferRecord {
	records, err := n.transfers.History()
	if err != nil {
		n.logger.Error("failed to read transfer history", zap.Error(err))
		return nil
	}
	return records
}

// ClearHistory empties the transfer log
func (n *Node) ClearHistory() {
	if err := n.transfers.ClearHistory(); err != nil {
		n.logger.Error("failed to clear transfer history", zap.Error(err))
	}
}

// StoreDir returns the absolute store directory
func (n *Node) StoreDir() string {
	return n.store.BasePath()
}

// Close stops every listener and releases the transfer log
func (n *Node) Close(ctx context.Context) error {
	var errs []error
	if err := n.receiver.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if n.metricsSrv != nil {
		if err := n.metricsSrv.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := n.history.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
