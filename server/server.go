package server

import (
	"crypto/tls"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
	"golang.org/x/crypto/acme/autocert"

	"github.com/serisow/docpilot/handlers"
	"github.com/serisow/docpilot/progress"
	"github.com/serisow/docpilot/store"
)

// SetupRoutes wires the HTTP surface: the run trigger, the document
// record, and the progress stream.
func SetupRoutes(st store.Store, enqueuer handlers.ProcessEnqueuer, broker progress.Broker, logger *slog.Logger) *mux.Router {
	r := mux.NewRouter()

	documentHandler := handlers.NewDocumentHandler(st, enqueuer, logger)
	r.HandleFunc("/api/documents/{id}", documentHandler.GetDocument).Methods("GET")
	r.HandleFunc("/api/documents/{id}/process", documentHandler.ProcessDocument).Methods("POST")
	r.HandleFunc("/api/documents/{id}/reprocess", documentHandler.ProcessDocument).Methods("POST")

	jobHandler := handlers.NewJobHandler(broker, logger)
	r.HandleFunc("/api/jobs/{job_id}/status", jobHandler.StreamStatus).Methods("GET")

	return r
}

// SetupNegroni wraps the router with recovery and request logging.
func SetupNegroni(r *mux.Router) *negroni.Negroni {
	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.Use(negroni.NewLogger())
	n.UseHandler(r)
	return n
}

// ServeProduction terminates TLS with certificates obtained through
// ACME. Port 80 serves challenge responses and redirects to HTTPS.
func ServeProduction(n *negroni.Negroni, domains []string, certCacheDir string) {
	autocertManager := autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(certCacheDir),
	}

	go func() {
		srv := &http.Server{
			Addr:         ":80",
			Handler:      autocertManager.HTTPHandler(nil),
			IdleTimeout:  time.Minute,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		log.Fatal(srv.ListenAndServe())
	}()

	tlsConfig := &tls.Config{
		GetCertificate:           autocertManager.GetCertificate,
		PreferServerCipherSuites: true,
		CurvePreferences:         []tls.CurveID{tls.X25519, tls.CurveP256},
	}

	srv := &http.Server{
		Addr:        ":443",
		Handler:     n,
		TLSConfig:   tlsConfig,
		IdleTimeout: time.Minute,
		ReadTimeout: 5 * time.Second,
		// No write timeout: the job status stream stays open for the
		// whole pipeline run.
		WriteTimeout: 0,
	}

	log.Fatal(srv.ListenAndServeTLS("", ""))
}

// ServeDevelopment runs plain HTTP for local work.
func ServeDevelopment(httpPort string, n *negroni.Negroni) {
	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      n,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0,
	}
	log.Fatal(srv.ListenAndServe())
}
