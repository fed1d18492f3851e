// Package tls wraps certificate management for the server: manual
// cert/key files or Let's Encrypt via autocert, plus the plain-HTTP
// side (ACME challenges, HTTPS redirect).
package tls

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/antibyte/retrosheet/pkg/configuration"
	"github.com/antibyte/retrosheet/pkg/logger"

	"golang.org/x/crypto/acme/autocert"
)

// Config is the [TLS] settings snapshot the manager runs with.
type Config struct {
	Enabled            bool
	Domain             string
	LetsEncryptEmail   string
	CertCacheDir       string
	CertFile           string
	KeyFile            string
	ForceHTTPSRedirect bool
	HTTPSPort          string
}

// Manager hands the HTTP server its TLS configuration. A configured
// domain selects Let's Encrypt; otherwise the cert/key pair from the
// config is loaded at startup so a bad pair fails fast.
type Manager struct {
	config      *Config
	autocertMgr *autocert.Manager
	tlsConfig   *tls.Config
}

// NewManager reads the [TLS] section and prepares certificates.
func NewManager() (*Manager, error) {
	config := &Config{
		Enabled:            configuration.GetBool("TLS", "enabled", false),
		Domain:             strings.TrimSpace(configuration.GetString("TLS", "domain", "")),
		LetsEncryptEmail:   configuration.GetString("TLS", "letsencrypt_email", ""),
		CertCacheDir:       configuration.GetString("TLS", "cert_cache_dir", "./certs"),
		CertFile:           configuration.GetString("TLS", "cert_file", "cert.pem"),
		KeyFile:            configuration.GetString("TLS", "key_file", "key.pem"),
		ForceHTTPSRedirect: configuration.GetBool("TLS", "force_https_redirect", false),
		HTTPSPort:          configuration.GetString("TLS", "https_port", "8443"),
	}

	m := &Manager{config: config}
	if !config.Enabled {
		return m, nil
	}

	var err error
	if config.Domain != "" {
		err = m.initLetsEncrypt()
	} else {
		err = m.initManual()
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// initLetsEncrypt sets up automatic certificates for the configured
// domain and its www alias.
func (m *Manager) initLetsEncrypt() error {
	logger.Info(logger.AreaSecurity, "Initializing Let's Encrypt for domain: %s", m.config.Domain)

	if err := os.MkdirAll(m.config.CertCacheDir, 0700); err != nil {
		return fmt.Errorf("certificate cache directory: %w", err)
	}

	m.autocertMgr = &autocert.Manager{
		Cache:      autocert.DirCache(m.config.CertCacheDir),
		Prompt:     autocert.AcceptTOS,
		Email:      m.config.LetsEncryptEmail,
		HostPolicy: autocert.HostWhitelist(m.config.Domain, "www."+m.config.Domain),
	}

	m.tlsConfig = m.autocertMgr.TLSConfig()
	m.tlsConfig.MinVersion = tls.VersionTLS12
	return nil
}

// initManual loads the configured certificate pair.
func (m *Manager) initManual() error {
	logger.Info(logger.AreaSecurity, "Loading TLS certificate %s with key %s", m.config.CertFile, m.config.KeyFile)

	cert, err := tls.LoadX509KeyPair(m.config.CertFile, m.config.KeyFile)
	if err != nil {
		return fmt.Errorf("loading certificate pair: %w", err)
	}

	m.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"h2", "http/1.1"},
	}
	return nil
}

// Enabled reports whether TLS serving is on.
func (m *Manager) Enabled() bool {
	return m.config.Enabled
}

// TLSConfig returns the server's TLS configuration, nil when disabled.
func (m *Manager) TLSConfig() *tls.Config {
	if !m.config.Enabled {
		return nil
	}
	return m.tlsConfig
}

// HTTPSPort returns the port the TLS listener binds.
func (m *Manager) HTTPSPort() string {
	return m.config.HTTPSPort
}

// NeedsHTTPServer reports whether a plain HTTP listener must run next
// to the TLS one, for ACME challenges or the HTTPS redirect.
func (m *Manager) NeedsHTTPServer() bool {
	return m.config.Enabled && (m.autocertMgr != nil || m.config.ForceHTTPSRedirect)
}

// HTTPHandler returns the handler for the plain HTTP listener. With
// Let's Encrypt it serves ACME challenges and redirects the rest;
// otherwise it redirects everything to the HTTPS listener.
func (m *Manager) HTTPHandler() http.Handler {
	if m.autocertMgr != nil {
		return m.autocertMgr.HTTPHandler(m.redirectHandler())
	}
	return m.redirectHandler()
}

// redirectHandler sends plain HTTP requests to the HTTPS listener.
func (m *Manager) redirectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if idx := strings.IndexByte(host, ':'); idx >= 0 {
			host = host[:idx]
		}

		target := "https://" + host
		if m.config.HTTPSPort != "443" {
			target += ":" + m.config.HTTPSPort
		}
		target += r.RequestURI

		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
}
