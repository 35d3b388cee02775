package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cogsched/cogsched/internal/api"
	appengine "github.com/cogsched/cogsched/internal/app/engine"
	"github.com/cogsched/cogsched/internal/config"
	"github.com/cogsched/cogsched/internal/daemon"
	"github.com/cogsched/cogsched/internal/domain"
	"github.com/cogsched/cogsched/internal/infra/sqlite"
	"github.com/cogsched/cogsched/internal/parser"
)

var serveFlags struct {
	configPath string
	host       string
	port       int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.configPath, "config", "", "path to config.toml")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "override listen host")
	serveCmd.Flags().IntVar(&serveFlags.port, "port", 0, "override listen port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := daemon.Load(serveFlags.configPath)
	if err != nil {
		return err
	}
	if serveFlags.host != "" {
		cfg.API.Host = serveFlags.host
	}
	if serveFlags.port != 0 {
		cfg.API.Port = serveFlags.port
	}

	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return err
	}
	store, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	taskParser := buildParser(cfg.Parser, log)
	manager := config.NewManager(config.Default())
	engine := appengine.New(manager, store, taskParser, appengine.Options{})

	server := api.NewServer(engine, manager, store)
	if cfg.Metrics.Enabled {
		server.EnableMetrics()
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr(), "metrics", cfg.Metrics.Enabled, "parser", cfg.Parser.Backend)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

// buildParser assembles the task parser chain from config. The LLM backend
// always carries the regex fallback so chat keeps working offline.
func buildParser(cfg daemon.ParserConfig, log *slog.Logger) domain.TaskParser {
	if cfg.Backend == "openai" {
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			log.Warn("OPENAI_API_KEY not set, falling back to regex parser")
			return parser.Regex{}
		}
		return parser.Fallback{
			Primary:   parser.NewLLM(key, cfg.BaseURL, cfg.Model),
			Secondary: parser.Regex{},
		}
	}
	return parser.Regex{}
}
