package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"llamabridge/internal/bridgelog"
	"llamabridge/internal/common/fsutil"
	"llamabridge/internal/config"
	"llamabridge/internal/httpapi"
	"llamabridge/internal/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		bridgelog.L().Error().Err(err).Msg("exit")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath   string
		addr      string
		modelsDir string
		modelPath string
		nCtx      int
		nThreads  int
		logLevel  string
		logFile   string
	)

	root := &cobra.Command{
		Use:           "llamabridged",
		Short:         "Local control daemon for the llama inference bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{}
			if cfgPath != "" {
				var err error
				cfg, err = config.Load(cfgPath)
				if err != nil {
					return err
				}
			}
			// Flags override file values when set.
			if addr != "" {
				cfg.Addr = addr
			}
			if modelsDir != "" {
				cfg.ModelsDir = modelsDir
			}
			if modelPath != "" {
				cfg.ModelPath = modelPath
			}
			if nCtx > 0 {
				cfg.NCtx = nCtx
			}
			if nThreads > 0 {
				cfg.NThreads = nThreads
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logFile != "" {
				cfg.LogFile = logFile
			}
			if cfg.Addr == "" {
				cfg.Addr = ":8090"
			}
			return run(cfg)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "Config file (yaml/json/toml)")
	root.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8090")
	root.Flags().StringVar(&modelsDir, "models-dir", "", "Directory to scan for *.gguf model files")
	root.Flags().StringVar(&modelPath, "model", "", "Model file to load at startup")
	root.Flags().IntVar(&nCtx, "n-ctx", 0, "Context window in tokens (0 = default 2048)")
	root.Flags().IntVar(&nThreads, "n-threads", 0, "Decode threads (0 = default 4)")
	root.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error")
	root.Flags().StringVar(&logFile, "log-file", "", "Rotating log file (default: stderr)")
	return root
}

func run(cfg config.Config) error {
	bridgelog.SetLevel(cfg.LogLevel)
	if cfg.LogFile != "" {
		bridgelog.SetOutput(bridgelog.FileOutput(cfg.LogFile))
	} else {
		bridgelog.SetOutput(bridgelog.ConsoleOutput())
	}
	log := bridgelog.L()

	sess := session.New()
	if err := sess.Init(); err != nil {
		return err
	}
	defer sess.Free()

	if cfg.ModelPath != "" {
		path, err := fsutil.ExpandHome(cfg.ModelPath)
		if err != nil {
			return err
		}
		// The stub engine accepts any path, so check up front.
		if !fsutil.PathExists(path) {
			return fmt.Errorf("model file not found: %s", path)
		}
		if err := sess.Load(path, cfg.NCtx, cfg.NThreads); err != nil {
			return err
		}
	}

	httpapi.SetLogger(log)
	httpapi.SetModelsDir(cfg.ModelsDir)
	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(sess)}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("engine", sess.EngineName()).Msg("llamabridged listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
