package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"relaymesh/pkg/addr"
	"relaymesh/pkg/model"
)

// HTTPRefresher pulls the project list from the authority and swaps it
// into the cache. It holds no lock while the request is in flight; the
// snapshot is applied only after the full response decoded cleanly.
type HTTPRefresher struct {
	Dir    Replacer
	Store  *Store // optional persistence; nil skips
	Token  string
	Client *http.Client
}

func NewHTTPRefresher(dir Replacer, store *Store, token string) *HTTPRefresher {
	return &HTTPRefresher{
		Dir:    dir,
		Store:  store,
		Token:  token,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *HTTPRefresher) RefreshProjects(ctx context.Context, actingNode string, authorityRoute addr.Address) error {
	base, err := routeBaseURL(authorityRoute)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteRefreshFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/projects", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteRefreshFailed, err)
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}
	if actingNode != "" {
		req.Header.Set("X-Acting-Node", actingNode)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteRefreshFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: authority returned %s", ErrRemoteRefreshFailed, resp.Status)
	}
	var projects []model.Project
	if err := json.NewDecoder(resp.Body).Decode(&projects); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteRefreshFailed, err)
	}
	records := make([]model.ProjectRecord, 0, len(projects))
	for _, p := range projects {
		rec, err := p.Record()
		if err != nil {
			return fmt.Errorf("%w: project %q: %v", ErrRemoteRefreshFailed, p.Name, err)
		}
		records = append(records, rec)
	}
	r.Dir.ReplaceProjects(records)
	if r.Store != nil {
		if err := r.Store.SaveProjects(ctx, records); err != nil {
			// Cache is already current; persistence catches up next refresh.
			log.Printf("directory persist after refresh failed: %v", err)
		}
	}
	log.Printf("project directory refreshed: %d records", len(records))
	return nil
}

// routeBaseURL derives the authority's HTTP endpoint from the leading
// host and tcp segments of its route.
func routeBaseURL(route addr.Address) (string, error) {
	var host string
	var port uint16
	for _, seg := range route.Segments() {
		switch seg.Kind {
		case addr.KindDNS:
			if host == "" {
				host = seg.Value
			}
		case addr.KindIP4:
			if host == "" {
				ip, err := seg.IP4()
				if err != nil {
					return "", err
				}
				host = ip.String()
			}
		case addr.KindIP6:
			if host == "" {
				ip, err := seg.IP6()
				if err != nil {
					return "", err
				}
				host = ip.String()
			}
		case addr.KindTCP:
			if host != "" && port == 0 {
				p, err := seg.TCPPort()
				if err != nil {
					return "", err
				}
				port = p
			}
		}
	}
	if host == "" || port == 0 {
		return "", fmt.Errorf("route %s does not name an authority endpoint", route)
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(int(port))), nil
}
