package main

import (
	"flag"
	"log"
	"net/http"

	"relaymesh/pkg/api"
	"relaymesh/pkg/db"
	"relaymesh/pkg/version"
)

func main() {
	listenAddr := flag.String("addr", ":9500", "listen address")
	showVersion := flag.Bool("v", false, "print version and exit")
	tlsCert := flag.String("tls-cert", "", "TLS cert path (enables HTTPS if set with --tls-key)")
	tlsKey := flag.String("tls-key", "", "TLS key path (enables HTTPS if set with --tls-cert)")
	clientCA := flag.String("client-ca", "", "require and verify client certs using this CA (optional)")
	flag.Parse()

	if *showVersion {
		log.Printf("authorityd version=%s", version.Build)
		return
	}

	gdb, err := db.Init()
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	srv := &api.AuthorityServer{DB: gdb}
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	log.Printf("authorityd listening on %s", *listenAddr)
	if *tlsCert != "" && *tlsKey != "" {
		cfg, err := api.TLSConfig(*tlsCert, *tlsKey, *clientCA)
		if err != nil {
			log.Fatalf("tls config: %v", err)
		}
		server := &http.Server{Addr: *listenAddr, Handler: mux, TLSConfig: cfg}
		log.Fatal(server.ListenAndServeTLS("", ""))
	}
	log.Fatal(http.ListenAndServe(*listenAddr, mux))
}
