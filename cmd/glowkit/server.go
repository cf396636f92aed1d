package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/glowkit/internal/api"
	"github.com/kalambet/glowkit/internal/catalog"
	"github.com/kalambet/glowkit/internal/chat"
	"github.com/kalambet/glowkit/internal/config"
	"github.com/kalambet/glowkit/internal/proxy"
	"github.com/kalambet/glowkit/internal/selection"
	"github.com/kalambet/glowkit/internal/storage"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"start"},
	Short:   "Run the catalog web server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running glowkit server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show glowkit status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "glowkit.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "glowkit version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.Log.Level)})))

	// Refuse to start twice on the same port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get("http://" + cfg.Addr() + "/health"); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("glowkit is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("glowkit is already running on %s", cfg.Addr())
		return fmt.Errorf("server already running on %s", cfg.Addr())
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	products := catalog.NewStore(cfg.Catalog.Source, &http.Client{Timeout: 15 * time.Second})
	if err := products.Reload(ctx); err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	slog.Info("catalog loaded", "source", products.Source(), "products", len(products.Products()))

	completer := proxy.NewClient(cfg.Chat.Endpoint,
		proxy.WithAPIKey(cfg.Chat.APIKey),
		proxy.WithTimeout(cfg.ChatTimeout()),
	)
	slog.Info("chat endpoint configured", "endpoint", completer.Endpoint(), "timeout", cfg.ChatTimeout())
	chats := chat.NewRegistry(completer, cfg.SessionTTL())
	selections := selection.NewStore(store)

	handler, err := api.NewAppHandler(api.AppDeps{
		Catalog:       products,
		Selection:     selections,
		Chats:         chats,
		ChatTimeout:   cfg.ChatTimeout(),
		ChatPerMinute: cfg.Chat.RatePerMinute,
	})
	if err != nil {
		return fmt.Errorf("building handler: %w", err)
	}

	var mcpSrv *server.MCPServer
	if cfg.MCP.Enabled {
		session, err := cliSessionID(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("loading CLI session: %w", err)
		}
		mcpSrv = api.NewMCPServer(api.MCPDeps{
			Catalog:   products,
			Selection: selections,
			SessionID: session,
		})
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "glowkit listening on http://%s\n", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Catalog.Watch {
		g.Go(func() error {
			err := products.Watch(gctx)
			if errors.Is(err, catalog.ErrNotWatchable) {
				slog.Info("catalog watch disabled", "source", cfg.Catalog.Source)
				return nil
			}
			if err != nil {
				slog.Error("catalog watch stopped", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		chats.Run(gctx, time.Minute)
		return nil
	})

	if mcpSrv != nil {
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := server.NewStdioServer(mcpSrv).Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
	}

	err = g.Wait()
	// Form exchanges run detached from requests; let them land before the
	// store closes.
	chats.Wait()
	return err
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("glowkit is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop glowkit (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to glowkit (PID %d)", pid)
	return nil
}

type healthResponse struct {
	Status       string    `json:"status"`
	Products     int       `json:"products"`
	LoadedAt     time.Time `json:"loaded_at"`
	Selections   *int      `json:"selections"`
	ChatSessions int       `json:"chat_sessions"`
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + cfg.Addr() + "/health")
	switch {
	case err != nil:
		printStatus("Server", "stopped")
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		printStatus("Server", "error (HTTP %d)", resp.StatusCode)
	default:
		var health healthResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&health)
		resp.Body.Close()
		printStatus("Server", "running on %s", cfg.Addr())
		if decodeErr == nil {
			printHealth(health)
		}
	}

	printStatus("Catalog", "%s", cfg.Catalog.Source)
	printStatus("Chat endpoint", "%s", cfg.Chat.Endpoint)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func printHealth(h healthResponse) {
	printStatus("Products", "%s", countLabel(h.Products))
	if !h.LoadedAt.IsZero() {
		printStatus("Catalog loaded", "%s", h.LoadedAt.Local().Format(time.DateTime))
	}
	if h.Selections != nil {
		printStatus("Selections", "%d", *h.Selections)
	}
	printStatus("Chat sessions", "%d", h.ChatSessions)
}

func countLabel(n int) string {
	if n == 1 {
		return "1 product"
	}
	return fmt.Sprintf("%d products", n)
}
