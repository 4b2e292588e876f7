// Command rover drives squads of rovers across a rectangular plateau.
//
// Subcommands:
//  1. "run" – ingests a mission file (or stdin, or a preset) and prints one report per rover
//  2. "validate" – checks mission files without executing them
//  3. "serve" – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  4. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from the environment (optionally a .env file) and can be
// overridden with flags. ngrok tunneling is available for easy external
// access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mars-rover/api"
	"github.com/wricardo/mars-rover/mission/config"
	"github.com/wricardo/mars-rover/mission/controller"
	"github.com/wricardo/mars-rover/mission/service"
	"github.com/wricardo/mars-rover/mission/session"
	"github.com/wricardo/mars-rover/transport/mcp"
	"github.com/wricardo/mars-rover/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Mars Rover Mission Control"
)

// Settings holds deployment configuration read from the environment.
type Settings struct {
	Host           string        `env:"HOST" envDefault:"localhost"`
	Port           int           `env:"PORT" envDefault:"8080"`
	MissionsDir    string        `env:"MISSIONS_DIR" envDefault:"missions"`
	SessionsDir    string        `env:"SESSIONS_DIR" envDefault:"sessions"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	Debug          bool          `env:"DEBUG"`
	NgrokEnabled   bool          `env:"NGROK_ENABLED"`
	NgrokAuthToken string        `env:"NGROK_AUTHTOKEN"`
	NgrokDomain    string        `env:"NGROK_DOMAIN"`
}

// loadSettings parses Settings from the environment.
func loadSettings() (Settings, error) {
	var settings Settings
	if err := env.Parse(&settings); err != nil {
		return settings, fmt.Errorf("parse env: %w", err)
	}
	if settings.NgrokAuthToken == "" {
		// Also support underscore version
		settings.NgrokAuthToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	return settings, nil
}

// main loads the environment, builds the command tree and runs it.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	settings, err := loadSettings()
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	if err := newApp(settings).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Flag defaults come from settings.
func newApp(settings Settings) *cli.Command {
	return &cli.Command{
		Name:    "rover",
		Usage:   AppName,
		Version: Version,
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Execute a mission and print one report line per rover",
				ArgsUsage: "[FILE|-]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mission",
						Usage: "Run a preset from the missions directory instead of a file",
					},
					&cli.StringFlag{
						Name:    "missions-dir",
						Value:   settings.MissionsDir,
						Usage:   "Directory containing mission presets",
						Sources: cli.EnvVars("MISSIONS_DIR"),
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					input, err := readMissionInput(cmd)
					if err != nil {
						return err
					}
					if err := runMission(input, cmd.Root().Writer); err != nil {
						return cli.Exit("ERROR: "+err.Error(), 1)
					}
					return nil
				},
			},
			{
				Name:      "validate",
				Usage:     "Check mission files without executing them",
				ArgsUsage: "FILE...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					files := cmd.Args().Slice()
					if len(files) == 0 {
						return fmt.Errorf("at least one mission file is required")
					}
					if !validateFiles(files, cmd.Root().Writer) {
						return cli.Exit("", 1)
					}
					return nil
				},
			},
			{
				Name:  "serve",
				Usage: "Run the HTTP server with REST API, WebSocket, and MCP endpoint",
				Flags: append(serviceFlags(settings),
					&cli.StringFlag{
						Name:    "host",
						Value:   settings.Host,
						Usage:   "HTTP server host",
						Sources: cli.EnvVars("HOST"),
					},
					&cli.IntFlag{
						Name:    "port",
						Value:   settings.Port,
						Usage:   "HTTP server port",
						Sources: cli.EnvVars("PORT"),
					},
					&cli.BoolFlag{
						Name:    "ngrok",
						Value:   settings.NgrokEnabled,
						Usage:   "Enable ngrok tunnel",
						Sources: cli.EnvVars("NGROK_ENABLED"),
					},
					&cli.StringFlag{
						Name:  "ngrok-auth",
						Value: settings.NgrokAuthToken,
						Usage: "Ngrok auth token (or use NGROK_AUTHTOKEN env var)",
					},
					&cli.StringFlag{
						Name:    "ngrok-domain",
						Value:   settings.NgrokDomain,
						Usage:   "Custom ngrok domain (optional)",
						Sources: cli.EnvVars("NGROK_DOMAIN"),
					},
				),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s := applyServiceFlags(settings, cmd)
					s.Host = cmd.String("host")
					s.Port = cmd.Int("port")
					s.NgrokEnabled = cmd.Bool("ngrok")
					s.NgrokAuthToken = cmd.String("ngrok-auth")
					s.NgrokDomain = cmd.String("ngrok-domain")
					setupLogging(s.Debug)

					log.Printf("Starting %s v%s (mode: serve)", AppName, Version)
					missionService, err := initializeServices(s)
					if err != nil {
						return fmt.Errorf("failed to initialize services: %w", err)
					}
					return runHTTPServer(ctx, s, missionService)
				},
			},
			{
				Name:  "mcp",
				Usage: "Run an MCP stdio server, starting an internal HTTP API if none is available",
				Flags: serviceFlags(settings),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s := applyServiceFlags(settings, cmd)
					setupLogging(s.Debug)

					log.Printf("Starting %s v%s (mode: mcp)", AppName, Version)
					missionService, err := initializeServices(s)
					if err != nil {
						return fmt.Errorf("failed to initialize services: %w", err)
					}
					return runStdioMCPWithInternalServer(missionService)
				},
			},
		},
	}
}

// serviceFlags are shared by the commands that build the mission service.
func serviceFlags(settings Settings) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "missions-dir",
			Value:   settings.MissionsDir,
			Usage:   "Directory containing mission presets",
			Sources: cli.EnvVars("MISSIONS_DIR"),
		},
		&cli.StringFlag{
			Name:    "sessions-dir",
			Value:   settings.SessionsDir,
			Usage:   "Directory where sessions are persisted",
			Sources: cli.EnvVars("SESSIONS_DIR"),
		},
		&cli.BoolFlag{
			Name:    "debug",
			Value:   settings.Debug,
			Usage:   "Enable debug logging",
			Sources: cli.EnvVars("DEBUG"),
		},
	}
}

func applyServiceFlags(settings Settings, cmd *cli.Command) Settings {
	settings.MissionsDir = cmd.String("missions-dir")
	settings.SessionsDir = cmd.String("sessions-dir")
	settings.Debug = cmd.Bool("debug")
	return settings
}

func setupLogging(debug bool) {
	if debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

// readMissionInput resolves the input of the run command: a preset, a file,
// or stdin when the argument is "-" or missing.
func readMissionInput(cmd *cli.Command) (string, error) {
	if name := cmd.String("mission"); name != "" {
		missions, err := config.NewManager(cmd.String("missions-dir"))
		if err != nil {
			return "", err
		}
		mission, err := missions.LoadMission(name)
		if err != nil {
			return "", err
		}
		return mission.Input, nil
	}

	path := cmd.Args().First()
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.Root().Reader)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// runMission ingests and executes input, writing each completed rover's
// report to w. Reports of rovers that finished before a failure are written
// before the error is returned.
func runMission(input string, w io.Writer) error {
	c := controller.New()
	if err := c.IngestInput(input); err != nil {
		return err
	}

	reports, runErr := c.ExecuteRoverInstructions()
	if err := controller.WriteReports(w, reports); err != nil {
		return err
	}
	return runErr
}

// validateFiles ingests every file and prints one verdict line per file. It
// reports whether all of them are valid.
func validateFiles(paths []string, w io.Writer) bool {
	allValid := true
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err == nil {
			err = controller.New().IngestInput(string(data))
		}
		if err != nil {
			allValid = false
			fmt.Fprintf(w, "INVALID %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(w, "OK %s\n", path)
	}
	return allValid
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(parent context.Context, settings Settings, missionService service.MissionService) error {
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	apiServer := api.NewServer(missionService, hub)

	addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)

	// Create MCP client for /mcp endpoint
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
			cancel()
		}
	}()

	if settings.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, settings, mainRouter)
		}()
	}

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST.
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done.
func runNgrokTunnel(ctx context.Context, settings Settings, handler http.Handler) {
	if settings.NgrokAuthToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if settings.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.NgrokDomain))
		log.Printf("Using custom ngrok domain: %s", settings.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.NgrokAuthToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// initializeServices wires the session and mission managers into the
// mission service and starts the background maintenance routines.
func initializeServices(settings Settings) (service.MissionService, error) {
	missionManager, err := config.NewManager(settings.MissionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create mission manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(settings.SessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)

	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}

	missionService := service.NewMissionService(sessionManager, missionManager)

	go sessionCleanupRoutine(sessionManager, settings.SessionTTL)
	go filesystemSyncRoutine(sessionManager, persistence)

	return missionService, nil
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the provided retention window.
func sessionCleanupRoutine(manager *session.Manager, ttl time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		removed := manager.CleanupExpiredSessions(ttl)
		if removed > 0 {
			log.Printf("Cleaned up %d expired sessions", removed)
		}
	}
}

// filesystemSyncRoutine periodically drops sessions from memory whose files
// were deleted.
func filesystemSyncRoutine(manager *session.Manager, persistence session.SessionPersistence) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if pruned := syncWithFilesystem(manager, persistence); pruned > 0 {
			log.Printf("Filesystem sync: pruned %d orphaned sessions from memory", pruned)
		}
	}
}

func syncWithFilesystem(manager *session.Manager, persistence session.SessionPersistence) int {
	if persistence == nil {
		return 0
	}

	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.Printf("Pruned session %s from memory (file deleted)", sess.ID)
		}
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:8080; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(missionService service.MissionService) error {
	externalURL := "http://localhost:8080"
	log.Printf("Checking for external API server at %s...", externalURL)

	baseURL := externalURL
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api")
	if err == nil && resp.StatusCode < 500 && strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", externalURL)
	} else {
		if err == nil {
			resp.Body.Close()
		}
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		internalAddr := listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		hub := websocket.NewHub()
		go hub.Run()
		defer hub.Stop()

		httpServer := &http.Server{
			Handler: api.NewServer(missionService, hub),
		}
		defer httpServer.Close()

		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()

		// Wait a moment for the server to be ready
		time.Sleep(100 * time.Millisecond)

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Printf("MCP stdio server ready (API: %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
