package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"relaymesh/pkg/access"
	"relaymesh/pkg/addr"
	"relaymesh/pkg/api"
	"relaymesh/pkg/directory"
	"relaymesh/pkg/model"
	"relaymesh/pkg/version"
	"relaymesh/pkg/worker"
)

func main() {
	defaultID := os.Getenv("NODE_ID")
	defaultAuthority := os.Getenv("AUTHORITY_ADDR")
	defaultToken := os.Getenv("AUTH_TOKEN")

	listenAddr := flag.String("addr", ":4000", "listen address")
	nodeID := flag.String("id", defaultID, "node id (overrides NODE_ID env)")
	showVersion := flag.Bool("v", false, "print version and exit")
	token := flag.String("token", defaultToken, "bearer token for the management API (optional)")
	authorityStr := flag.String("authority", defaultAuthority, "authority route, e.g. /dnsaddr/authority.local/tcp/9500")
	authorityToken := flag.String("authority-token", os.Getenv("AUTHORITY_TOKEN"), "bearer credential for the authority")
	dirPath := flag.String("directory-db", "/var/lib/relaymesh/directory.db", "sqlite file the directory cache persists to")
	dirBackend := flag.String("directory", "memory", "directory backend: memory|consul (requires build tag consul)")
	consulAddr := flag.String("consul-addr", "127.0.0.1:8500", "consul address (when directory=consul)")
	seedNodes := flag.String("nodes", "", "seed node aliases, comma separated alias=kind:host:port entries")
	tlsCert := flag.String("tls-cert", "", "TLS cert path (enables HTTPS if set with --tls-key)")
	tlsKey := flag.String("tls-key", "", "TLS key path (enables HTTPS if set with --tls-cert)")
	clientCA := flag.String("client-ca", "", "require and verify client certs using this CA (optional)")
	flag.Parse()

	if *showVersion {
		log.Printf("noded version=%s", version.Build)
		return
	}
	if *nodeID == "" {
		log.Fatal("node id is required (--id or NODE_ID)")
	}

	var dir directory.Directory
	switch *dirBackend {
	case "consul":
		dir = directory.NewConsulDirectory(*consulAddr)
	case "memory":
		dir = directory.NewCache()
	default:
		log.Fatalf("unsupported directory backend: %s", *dirBackend)
	}

	var store *directory.Store
	if cache, ok := dir.(*directory.Cache); ok && *dirPath != "" {
		s, err := directory.OpenStore(*dirPath)
		if err != nil {
			log.Printf("directory persistence disabled: %v", err)
		} else {
			store = s
			if err := s.Load(context.Background(), cache); err != nil {
				log.Printf("directory load failed: %v", err)
			}
		}
	}

	for _, rec := range parseSeedNodes(*seedNodes) {
		dir.PutNode(rec)
		if store != nil {
			if err := store.SaveNode(context.Background(), rec); err != nil {
				log.Printf("persist seed node %s failed: %v", rec.Alias, err)
			}
		}
	}

	var authority addr.Address
	var refresher directory.Refresher
	if *authorityStr != "" {
		parsed, err := addr.Parse(*authorityStr)
		if err != nil {
			log.Fatalf("invalid authority route: %v", err)
		}
		authority = parsed
		refresher = directory.NewHTTPRefresher(dir, store, *authorityToken)
	}

	registry := worker.NewRegistry()
	hub := worker.NewHub(registry)

	// Inbound relays land on the echo worker by default so a freshly
	// created relay has something to terminate on.
	if _, err := registry.Register("echo", access.AllowAll{}, echoHandler(registry, hub)); err != nil {
		log.Fatalf("register echo worker: %v", err)
	}

	srv := &api.NodeServer{
		Registry:  registry,
		Hub:       hub,
		Directory: dir,
		Refresher: refresher,
		NodeID:    *nodeID,
		Authority: authority,
	}
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux, *token)

	log.Printf("noded %s listening on %s (directory=%s)", *nodeID, *listenAddr, *dirBackend)
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

// parseSeedNodes reads alias=kind:host:port entries, e.g.
// gw=ip4:10.0.0.1:4000,hub=dnsaddr:hub.example.com:4000
func parseSeedNodes(s string) []model.NodeRecord {
	var out []model.NodeRecord
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		rec, err := parseSeedNode(entry)
		if err != nil {
			log.Printf("skipping seed node %q: %v", entry, err)
			continue
		}
		out = append(out, rec)
	}
	return out
}

func parseSeedNode(entry string) (model.NodeRecord, error) {
	alias, endpoint, ok := strings.Cut(entry, "=")
	if !ok || alias == "" {
		return model.NodeRecord{}, fmt.Errorf("missing alias")
	}
	parts := strings.Split(endpoint, ":")
	if len(parts) < 3 {
		return model.NodeRecord{}, fmt.Errorf("want kind:host:port")
	}
	kind := model.EndpointKind(parts[0])
	switch kind {
	case model.EndpointDNS, model.EndpointV4, model.EndpointV6:
	default:
		return model.NodeRecord{}, fmt.Errorf("unknown endpoint kind %q", parts[0])
	}
	// IPv6 hosts contain colons; the port is always the last element.
	host := strings.Join(parts[1:len(parts)-1], ":")
	port, err := strconv.ParseUint(parts[len(parts)-1], 10, 16)
	if err != nil {
		return model.NodeRecord{}, fmt.Errorf("bad port: %v", err)
	}
	return model.NodeRecord{Alias: alias, Kind: kind, Host: host, Port: uint16(port)}, nil
}

// echoHandler bounces a message's payload back along its return route.
func echoHandler(registry *worker.Registry, hub *worker.Hub) worker.HandlerFunc {
	return func(ctx context.Context, msg *model.LocalMessage) error {
		if msg.ReturnRoute.Empty() {
			log.Printf("echo: message with no return route, payload=%dB", len(msg.Payload))
			return nil
		}
		reply := &model.LocalMessage{
			OnwardRoute: msg.ReturnRoute,
			Payload:     msg.Payload,
		}
		first, _ := msg.ReturnRoute.First()
		if first.Kind == addr.KindService {
			// Local return path: hand straight back to the registry.
			_, err := registry.Deliver(ctx, reply)
			return err
		}
		return hub.Send(ctx, msg.ReturnRoute, reply)
	}
}
