package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"relaymesh/pkg/addr"
	"relaymesh/pkg/directory"
	"relaymesh/pkg/model"
	"relaymesh/pkg/relay"
	"relaymesh/pkg/route"
)

var createCmd = cobra.Command{
	Use:   "create [name]",
	Short: "Creates a relay on a node, routing toward --at",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCreate,
}

var (
	createTo        string
	createAt        string
	createAuthority string
	createToken     string
	createDirDB     string
	createMode      string
)

func init() {
	createCmd.Flags().StringVar(&createTo, "to", "", "Alias of the node that hosts the relay (required).")
	createCmd.Flags().StringVar(&createAt, "at", "/", "Route to the relay target, e.g. /node/gw/project/p.")
	createCmd.Flags().StringVar(&createAuthority, "authority", os.Getenv("AUTHORITY_ADDR"), "Authority route for resolving project aliases.")
	createCmd.Flags().StringVar(&createToken, "token", os.Getenv("AUTH_TOKEN"), "Bearer token for node and authority APIs.")
	createCmd.Flags().StringVar(&createDirDB, "directory-db", defaultDirectoryDB(), "Local sqlite directory cache.")
	createCmd.Flags().StringVar(&createMode, "mode", string(model.CredentialOneway), "Credential exchange mode: none|oneway|mutual.")
	_ = createCmd.MarkFlagRequired("to")
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	name := ""
	if len(args) == 1 {
		name = args[0]
	}

	at, err := addr.Parse(createAt)
	if err != nil {
		return fmt.Errorf("--at is not a valid address: %w", err)
	}
	// Decided on the original, unresolved address: this flag picks the
	// relay naming convention on the hosting node.
	atLocalNode := addr.IsLocalNode(at)

	cache := directory.NewCache()
	store, err := directory.OpenStore(createDirDB)
	if err != nil {
		return fmt.Errorf("open directory cache: %w", err)
	}
	defer store.Close()
	if err := store.Load(ctx, cache); err != nil {
		return fmt.Errorf("load directory cache: %w", err)
	}

	resolver := route.Resolver{
		Lookup:     cache,
		ActingNode: createTo,
	}
	if createAuthority != "" {
		authority, err := addr.Parse(createAuthority)
		if err != nil {
			return fmt.Errorf("--authority is not a valid address: %w", err)
		}
		resolver.Authority = authority
		resolver.Refresher = directory.NewHTTPRefresher(cache, store, createToken)
	}

	res, err := resolver.Resolve(ctx, at)
	if err != nil {
		return err
	}

	node, ok := cache.GetNode(createTo)
	if !ok {
		return fmt.Errorf("%w: %q", route.ErrUnknownNode, createTo)
	}
	base := "http://" + net.JoinHostPort(node.Host, strconv.Itoa(int(node.Port)))

	req := relay.BuildRequest(res, name, atLocalNode, model.CredentialMode(createMode))
	info, err := relay.NewClient(base, createToken).Create(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(relay.ServiceAddress(info))
	return nil
}

func defaultDirectoryDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("cannot determine home dir: %v", err)
		return "relayctl-directory.db"
	}
	return home + "/.relaymesh/directory.db"
}
