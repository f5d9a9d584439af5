// ABOUTME: Entry point for the calendar sync service
// ABOUTME: Routes to serve, auth, push, pull, and init commands
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"

	"github.com/harperreed/calsync/db"
	"github.com/harperreed/calsync/logger"
	"github.com/harperreed/calsync/metrics"
	"github.com/harperreed/calsync/sync"
	"github.com/harperreed/calsync/web"
)

const version = "0.1.0"

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/calsync/calsync.db)")
	port := flag.Int("port", 8080, "HTTP port for the serve command")
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("calsync version %s\n", version)
		os.Exit(0)
	}

	// Environment overrides may live in a local .env file
	_ = godotenv.Load()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	logger.SetupDefault(os.Stdout)

	database, err := db.OpenDatabase(getDatabasePath(*dbPath))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "init":
		fmt.Println("Database initialized.")

	case "serve":
		config, err := sync.RequireOAuthConfig()
		if err != nil {
			log.Fatalf("Cannot start server: %v", err)
		}
		engine, credentials := buildEngine(database, config)
		collector := metrics.NewCollector(prometheus.DefaultRegisterer)
		server := web.NewServer(database, engine, credentials, collector)
		if err := server.Start(*port); err != nil {
			log.Fatalf("Server failed: %v", err)
		}

	case "auth":
		if len(commandArgs) < 1 {
			log.Fatal("Usage: calsync auth <user-id>")
		}
		config, err := sync.RequireOAuthConfig()
		if err != nil {
			log.Fatalf("Cannot build authorization URL: %v", err)
		}
		fmt.Println("Open this URL to authorize calendar access:")
		fmt.Println(sync.AuthURL(config, commandArgs[0]))

	case "push":
		if len(commandArgs) < 2 {
			log.Fatal("Usage: calsync push <user-id> <session-id>")
		}
		sessionID, err := uuid.Parse(commandArgs[1])
		if err != nil {
			log.Fatalf("Invalid session id: %v", err)
		}
		config, err := sync.RequireOAuthConfig()
		if err != nil {
			log.Fatalf("Cannot sync: %v", err)
		}
		engine, _ := buildEngine(database, config)
		result, err := engine.Push(context.Background(), commandArgs[0], sessionID)
		if err != nil {
			log.Fatalf("Push failed: %v", err)
		}
		printJSON(result)

	case "list":
		sessions, err := db.FindSessions(database, 50)
		if err != nil {
			log.Fatalf("Failed to list sessions: %v", err)
		}
		printJSON(sessions)

	case "status":
		if len(commandArgs) < 1 {
			log.Fatal("Usage: calsync status <user-id>")
		}
		engine, _ := buildEngine(database, sync.NewOAuthConfig())
		state, err := engine.Status(commandArgs[0])
		if err != nil {
			log.Fatalf("Failed to load sync status: %v", err)
		}
		linked, err := db.CountLinkedSessions(database, "primary")
		if err != nil {
			log.Fatalf("Failed to count linked sessions: %v", err)
		}
		printJSON(map[string]interface{}{
			"state":          state,
			"linkedSessions": linked,
		})

	case "pull":
		if len(commandArgs) < 1 {
			log.Fatal("Usage: calsync pull <user-id>")
		}
		config, err := sync.RequireOAuthConfig()
		if err != nil {
			log.Fatalf("Cannot sync: %v", err)
		}
		engine, _ := buildEngine(database, config)
		result, err := engine.Pull(context.Background(), commandArgs[0], nil)
		if err != nil {
			log.Fatalf("Pull failed: %v", err)
		}
		printJSON(result)

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func buildEngine(database *sql.DB, config *oauth2.Config) (*sync.Engine, *sync.CredentialStore) {
	credentials := sync.NewCredentialStore(database, config)
	factory := func(ctx context.Context, token *oauth2.Token) (sync.Provider, error) {
		return sync.NewGoogleProvider(ctx, config, token)
	}
	engine := sync.NewEngine(database, credentials, factory, loadTimezone(), windowDays())
	return engine, credentials
}

func loadTimezone() *time.Location {
	name := os.Getenv("CALSYNC_TIMEZONE")
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Invalid CALSYNC_TIMEZONE %q, falling back to UTC", name)
		return time.UTC
	}
	return loc
}

func windowDays() int {
	raw := os.Getenv("CALSYNC_WINDOW_DAYS")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("Invalid CALSYNC_WINDOW_DAYS %q, using default", raw)
		return 0
	}
	return n
}

func getDatabasePath(override string) string {
	if override != "" {
		return override
	}
	if env := os.Getenv("CALSYNC_DB_PATH"); env != "" {
		return env
	}
	return filepath.Join(xdg.DataHome, "calsync", "calsync.db")
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(data))
}

func printUsage() {
	fmt.Println(`calsync - external calendar synchronization for research sessions

Usage:
  calsync [flags] <command> [args]

Commands:
  serve                       Start the HTTP sync server
  auth <user-id>              Print the authorization URL for a user
  push <user-id> <session-id> Push one session to the external calendar
  pull <user-id>              Pull upcoming events into local sessions
  list                        List upcoming sessions
  status <user-id>            Show sync state and linked session count
  init                        Initialize the database and exit

Flags:
  -db-path string             Database path
  -port int                   HTTP port for serve (default 8080)
  -version                    Show version and exit`)
}
