// Tlsprobe is a TLS-terminating HTTP responder for testing TLS clients.
//
// Every request is answered with a plaintext report of the negotiated
// connection: protocol version, cipher suite, session id, SNI, the client
// random and the cipher suites the client offered, followed by the request
// line and headers. The server can stop by itself after a fixed number of
// connections, which makes it convenient in scripted client test runs.
//
// Usage:
//
//	tlsprobe tls_http_server <server_cert> <server_key> [flags]
//
// See 'tlsprobe --help' for the other commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/tlsprobe/internal/credentials"
	"github.com/muurk/tlsprobe/internal/discovery"
	"github.com/muurk/tlsprobe/internal/engine"
	"github.com/muurk/tlsprobe/internal/logging"
	"github.com/muurk/tlsprobe/internal/policy"
	"github.com/muurk/tlsprobe/internal/server"
	"github.com/muurk/tlsprobe/internal/ticketstore"
	"github.com/muurk/tlsprobe/internal/ui"
	"github.com/muurk/tlsprobe/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tlsprobe",
	Short: "TLS test server that reports the negotiated connection",
	Long: `A small TLS-terminating HTTP server for exercising TLS clients.

Each GET / or GET /status is answered with a plaintext report describing the
TLS parameters the client negotiated and the request it sent. Other paths get
404 and other methods 405.`,
	Version:      version.Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(gencertCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)
}

// Server command and flags
var (
	host          string
	port          int
	policyName    string
	threads       int
	maxClients    uint64
	sessionDB     string
	sessionDBPass string
	logLevel      string
	metricsListen string
	advertise     string
)

var serverCmd = &cobra.Command{
	Use:   "tls_http_server <server_cert> <server_key>",
	Short: "Start the TLS report server",
	Long: `Start the TLS report server with the given PEM certificate chain and key.

Connections are handled on a fixed pool of worker threads. With --max-clients
the server stops accepting after that many connections and exits once they
have all finished.

Session tickets are kept in memory unless --session-db names a directory, in
which case they are stored in an encrypted on-disk database. The database key
is derived from --session-db-pass, which is prompted for when stdin is a
terminal and the flag is empty.`,
	Example: `  # Serve on 8443 with the default policy
  tlsprobe tls_http_server cert.pem key.pem --port 8443

  # Answer exactly three clients, then exit
  tlsprobe tls_http_server cert.pem key.pem --port 8443 --max-clients 3

  # Only offer the legacy CC3200 cipher suites
  tlsprobe tls_http_server cert.pem key.pem --policy cc3200

  # Persist session tickets and expose Prometheus metrics
  tlsprobe tls_http_server cert.pem key.pem --session-db ./tickets --metrics-listen 127.0.0.1:9100`,
	Args: cobra.ExactArgs(2),
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	serverCmd.Flags().IntVar(&port, "port", 443, "Listen port")
	serverCmd.Flags().StringVar(&policyName, "policy", "default", "TLS policy name or YAML file (see 'tlsprobe policy list')")
	serverCmd.Flags().IntVar(&threads, "threads", 0, "Worker threads (0 = number of CPUs)")
	serverCmd.Flags().Uint64Var(&maxClients, "max-clients", 0, "Stop after this many connections (0 = unbounded)")
	serverCmd.Flags().StringVar(&sessionDB, "session-db", "", "Directory of the encrypted session ticket database (empty = in memory)")
	serverCmd.Flags().StringVar(&sessionDBPass, "session-db-pass", "", "Passphrase for --session-db")
	serverCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serverCmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Address serving Prometheus /metrics (empty = disabled)")
	serverCmd.Flags().StringVar(&advertise, "advertise", "", "mDNS instance name to advertise (empty = disabled)")
}

func validateServerFlags() error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}
	if threads < 0 {
		return fmt.Errorf("--threads must not be negative, got %d", threads)
	}
	if sessionDB == "" && sessionDBPass != "" {
		return errors.New("--session-db-pass requires --session-db")
	}
	if advertise != "" && port == 0 {
		return errors.New("--advertise requires a fixed --port")
	}
	return nil
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := validateServerFlags(); err != nil {
		return err
	}
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	cert, err := credentials.Load(args[0], args[1])
	if err != nil {
		return err
	}
	logging.Info("Loaded server credentials", zap.Any("certificate", credentials.Describe(cert)))

	pol, err := policy.Load(policyName)
	if err != nil {
		return err
	}
	tlsConfig, err := pol.TLSConfig(cert)
	if err != nil {
		return err
	}
	logging.Info("Using TLS policy", zap.Any("policy", pol.Info()))

	store, closeStore, err := openStore(pol)
	if err != nil {
		return err
	}
	defer closeStore()

	var metrics *server.Metrics
	if metricsListen != "" {
		metrics = server.NewMetrics()
		stopMetrics, err := serveMetrics(metricsListen, metrics)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	srv, err := server.New(server.Config{
		Host:       host,
		Port:       port,
		Threads:    threads,
		MaxClients: maxClients,
		TLS:        tlsConfig,
		Store:      store,
		Metrics:    metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Listen(); err != nil {
		return err
	}
	ui.NewPrinter(nil).PrintHeader("TLS report server", "tlsprobe tls_http_server", serverFields(srv, pol, store))

	if advertise != "" {
		ad, err := discovery.Advertise(advertise, port, map[string]string{
			"path":   "/status",
			"policy": pol.Name,
		})
		if err != nil {
			return err
		}
		defer ad.Shutdown()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx)
}

func serverFields(srv *server.Server, pol *policy.Policy, store engine.SessionStore) ui.Fields {
	clients := "unbounded"
	if maxClients > 0 {
		clients = strconv.FormatUint(maxClients, 10)
	}
	tickets := "disabled"
	switch {
	case store == nil:
	case sessionDB != "":
		tickets = "encrypted database " + sessionDB
	default:
		tickets = "in memory"
	}

	fields := ui.Fields{}.
		Add("Listen", srv.Addr().String()).
		Add("Policy", pol.Name).
		Add("Threads", strconv.Itoa(srv.Threads())).
		Add("Max clients", clients).
		Add("Session tickets", tickets)
	if metricsListen != "" {
		fields = fields.Add("Metrics", "http://"+metricsListen+"/metrics")
	}
	if advertise != "" {
		fields = fields.Add("mDNS", advertise+" ("+discovery.ServiceType+")")
	}
	return fields
}

// openStore returns the ticket store selected by the flags. The store is nil
// when the policy disables session tickets.
func openStore(pol *policy.Policy) (engine.SessionStore, func(), error) {
	if pol.DisableSessionTickets {
		if sessionDB != "" {
			logging.Warn("Policy disables session tickets, ignoring --session-db",
				zap.String("policy", pol.Name),
			)
		}
		return nil, func() {}, nil
	}

	if sessionDB == "" {
		mem := ticketstore.NewMemory(ticketstore.DefaultCapacity, ticketstore.DefaultLifetime)
		return mem, func() { _ = mem.Close() }, nil
	}

	pass, err := sessionPassphrase(sessionDBPass, os.Stdin)
	if err != nil {
		return nil, nil, err
	}
	db, err := ticketstore.OpenBadger(ticketstore.BadgerConfig{
		Dir:        sessionDB,
		Passphrase: pass,
	})
	if err != nil {
		return nil, nil, err
	}
	logging.Info("Opened session ticket database", zap.String("dir", sessionDB))

	return db, func() {
		if err := db.Close(); err != nil {
			logging.Error("Failed to close session ticket database", zap.Error(err))
		}
	}, nil
}

// sessionPassphrase returns flagValue, or reads the passphrase from in when it
// is a terminal.
func sessionPassphrase(flagValue string, in *os.File) ([]byte, error) {
	if flagValue != "" {
		return []byte(flagValue), nil
	}

	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, ticketstore.ErrPassphraseRequired
	}

	fmt.Fprint(os.Stderr, "Session database passphrase: ")
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(pass) == 0 {
		return nil, ticketstore.ErrPassphraseRequired
	}
	return pass, nil
}

// serveMetrics exposes the metrics registry on addr and returns a function
// that stops it.
func serveMetrics(addr string, metrics *server.Metrics) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error", zap.Error(err))
		}
	}()
	logging.Info("Serving metrics", zap.String("addr", listener.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctx)
	}, nil
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", version.ProductName, version.Full())
	},
}
