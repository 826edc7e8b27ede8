// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/spf13/cobra"

	"github.com/readium/readium-streamer/config"
	"github.com/readium/readium-streamer/parser"
)

// purgeEvery is the period of the cache purge, in minutes
const purgeEvery = 60

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "streamer",
		Short: "Stream EPUB and comic publications to reading systems",
		Long: `streamer opens EPUB and CBZ publications and serves them over HTTP as
Readium Web Publication Manifests, with byte ranges, search and media overlays.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "configuration file (default: $"+config.EnvConfigFile+")")
	root.AddCommand(newServeCmd(), newManifestCmd(), newPasswdCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [archives...]",
		Short: "Start the server and mount the given archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readCLIConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, args)
		},
	}
	cmd.Flags().IntP("port", "p", 0, "listening port, overrides the configuration")
	return cmd
}

func newManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest <archive>",
		Short: "Print the manifest of a publication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readCLIConfig(cmd)
			if err != nil {
				return err
			}
			return printManifest(cmd.OutOrStdout(), cfg, args[0])
		},
	}
}

// readCLIConfig reads the configuration file named by the flag or the environment,
// the defaults are used when none is given
func readCLIConfig(cmd *cobra.Command) (config.Configuration, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}
	var cfg config.Configuration
	var err error
	if path == "" {
		cfg = config.Default()
	} else if cfg, err = config.ReadConfig(path); err != nil {
		return cfg, err
	}

	if cmd.Flags().Lookup("port") != nil {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			derived := "http://" + cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
			cfg.Server.Port = port
			if cfg.Server.PublicBaseUrl == derived {
				cfg.Server.PublicBaseUrl = "http://" + cfg.Server.Host + ":" + strconv.Itoa(port)
			}
		}
	}
	return cfg, nil
}

func printManifest(w io.Writer, cfg config.Configuration, archive string) error {
	log, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	box, err := parser.Open(archive, parserOptions(cfg, log))
	if err != nil {
		return err
	}
	defer box.Close()
	data, err := box.Publication.Manifest()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func serve(ctx context.Context, cfg config.Configuration, archives []string) error {
	log, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	s, cleanup, err := buildServer(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if ctx == nil {
		ctx = context.Background()
	}
	if n, err := s.Restore(ctx); err != nil {
		log.Errorf("cannot read the catalog: %v", err)
	} else if n > 0 {
		log.Infof("restored %d publications", n)
	}
	if err = s.MountAll(ctx, archives); err != nil {
		return err
	}

	done := HandleSignals(log)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-done
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	log.Infof("streamer listening on %s, public base URL %s", s.Addr, cfg.Server.PublicBaseUrl)
	err = s.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-stopped
		return nil
	}
	return err
}

// HandleSignals dumps the goroutines on SIGQUIT and reports SIGINT and SIGTERM on
// the returned channel
func HandleSignals(log interface{ Infof(string, ...interface{}) }) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 1<<20)
		for sig := range sigChan {
			switch sig {
			case syscall.SIGQUIT:
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
			case syscall.SIGINT, syscall.SIGTERM:
				log.Infof("shutting down...")
				signal.Stop(sigChan)
				close(done)
				return
			}
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM)
	return done
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
