package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/antibyte/retrosheet/pkg/auth"
	"github.com/antibyte/retrosheet/pkg/configuration"
	"github.com/antibyte/retrosheet/pkg/document"
	"github.com/antibyte/retrosheet/pkg/logger"
	"github.com/antibyte/retrosheet/pkg/plugins"
	"github.com/antibyte/retrosheet/pkg/store"
	"github.com/antibyte/retrosheet/pkg/tabular"
	"github.com/antibyte/retrosheet/pkg/terminal"
	tlsmanager "github.com/antibyte/retrosheet/pkg/tls"
)

func main() {
	configPath := flag.String("config", "settings.cfg", "path to the settings file")
	calcPath := flag.String("calc", "", "recalculate a CSV/TSV file and exit instead of serving")
	outPath := flag.String("out", "", "write the -calc result here instead of in place")
	delimFlag := flag.String("delim", "", "field delimiter for -calc: , ; or tab (default: by file extension)")
	withHeaders := flag.Bool("headers", false, "treat the first row as column headers in -calc mode")
	flag.Parse()

	if err := configuration.Initialize(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if *calcPath != "" {
		if err := runBatch(*calcPath, *outPath, *delimFlag, *withHeaders); err != nil {
			fmt.Fprintf(os.Stderr, "calc failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := logger.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	logger.ConfigInfo("server starting, configuration loaded from %s", *configPath)

	serve()
}

// runBatch loads a delimited file, runs one calculate pass and writes the
// evaluated sheet back out. Failed cells render as NaN and are reported on
// stderr, they do not abort the run.
func runBatch(inPath, outPath, delimFlag string, hasHeaders bool) error {
	delim := document.DelimFor(inPath)
	if delimFlag != "" {
		var err error
		delim, err = parseDelim(delimFlag)
		if err != nil {
			return err
		}
	}

	sheet, err := document.LoadFile(inPath, delim, hasHeaders)
	if err != nil {
		return err
	}

	registry := tabular.NewRegistry()
	if err := plugins.Install(plugins.NewHost(registry, store.NewMemory())); err != nil {
		return fmt.Errorf("installing function packs: %w", err)
	}

	report := sheet.Calc(registry)
	for _, issue := range report.Errors {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", issue.Addr, issue.Kind, issue.Detail)
	}

	target := outPath
	if target == "" {
		target = inPath
	}
	outDelim := document.DelimFor(target)
	if delimFlag != "" {
		outDelim = delim
	}
	if err := document.SaveFile(sheet, target, outDelim); err != nil {
		return err
	}

	fmt.Printf("%s: %d formulas, %d failed\n", target, report.Formulas, len(report.Errors))
	return nil
}

func parseDelim(s string) (rune, error) {
	switch s {
	case ",":
		return ',', nil
	case ";":
		return ';', nil
	case "tab", "\t":
		return '\t', nil
	default:
		return 0, fmt.Errorf("unsupported delimiter %q (use , ; or tab)", s)
	}
}

func serve() {
	st, err := store.Open()
	if err != nil {
		logger.Fatal(logger.AreaDatabase, "store initialization failed: %v", err)
	}
	defer st.Close()
	auth.SetStore(st)
	logger.Info(logger.AreaDatabase, "store ready (backend: %s)",
		configuration.GetString("Database", "backend", "sqlite"))

	registry := tabular.NewRegistry()
	if err := plugins.Install(plugins.NewHost(registry, st)); err != nil {
		logger.Fatal(logger.AreaPlugin, "plugin installation failed: %v", err)
	}
	logger.Info(logger.AreaPlugin, "function packs installed: %s", strings.Join(plugins.PackNames(), ", "))

	handler := terminal.NewTerminalHandler(registry, st)

	// Authentication API routes
	http.HandleFunc("/api/auth/session", auth.HandleCreateSession)
	http.HandleFunc("/api/auth/login", auth.HandleLogin)
	http.HandleFunc("/api/auth/register", auth.HandleRegister)
	http.HandleFunc("/api/auth/validate", auth.HandleTokenValidation)
	http.HandleFunc("/api/auth/refresh", auth.HandleRefresh)
	http.HandleFunc("/api/auth/logout", auth.HandleLogout)

	// The websocket route needs an identity before the upgrade.
	http.HandleFunc("/ws", auth.RequireSession(handler.HandleWebSocket))

	http.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	http.Handle("/js/", http.StripPrefix("/js/", http.FileServer(http.Dir("js"))))
	http.Handle("/css/", http.StripPrefix("/css/", http.FileServer(http.Dir("css"))))

	// Root route last so it does not shadow the specific ones.
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if _, err := os.Stat("index.html"); err == nil {
			http.ServeFile(w, r, "index.html")
			return
		}
		http.ServeFile(w, r, "retrosheet.html")
	})

	tlsm, err := tlsmanager.NewManager()
	if err != nil {
		logger.Fatal(logger.AreaSecurity, "TLS setup failed: %v", err)
	}

	port := configuration.GetString("Server", "port", "8080")
	errc := make(chan error, 2)
	var servers []*http.Server

	if tlsm.Enabled() {
		httpsSrv := &http.Server{
			Addr:      ":" + tlsm.HTTPSPort(),
			TLSConfig: tlsm.TLSConfig(),
		}
		servers = append(servers, httpsSrv)
		go func() {
			logger.Info(logger.AreaSecurity, "HTTPS server listening on %s", httpsSrv.Addr)
			if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				errc <- fmt.Errorf("https server: %w", err)
			}
		}()

		if tlsm.NeedsHTTPServer() {
			httpSrv := &http.Server{Addr: ":" + port, Handler: tlsm.HTTPHandler()}
			servers = append(servers, httpSrv)
			go func() {
				logger.Info(logger.AreaSecurity, "HTTP server listening on %s for challenges and redirects", httpSrv.Addr)
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errc <- fmt.Errorf("http server: %w", err)
				}
			}()
		}
	} else {
		srv := &http.Server{Addr: ":" + port}
		servers = append(servers, srv)
		go func() {
			logger.Info(logger.AreaGeneral, "HTTP server listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errc <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		logger.Error(logger.AreaGeneral, "server failed: %v", err)
	case sig := <-stop:
		logger.Info(logger.AreaGeneral, "received %s, shutting down", sig)
	}

	timeout := configuration.GetDuration("Server", "shutdown_timeout", 10*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn(logger.AreaGeneral, "server shutdown: %v", err)
		}
	}
	handler.Shutdown()
}
