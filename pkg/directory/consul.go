//go:build consul

package directory

import (
	"encoding/json"
	"log"

	consulapi "github.com/hashicorp/consul/api"

	"relaymesh/pkg/model"
)

// ConsulDirectory serves the directory from Consul KV so a fleet of nodes
// shares one view. Project refreshes replace the whole subtree via a
// transaction, matching the snapshot-swap contract of the memory cache.
type ConsulDirectory struct {
	cli *consulapi.Client
}

const (
	consulNodePrefix    = "relaymesh/nodes/"
	consulProjectPrefix = "relaymesh/projects/"
)

// NewConsulDirectory connects to Consul at addr (empty means the agent
// default).
func NewConsulDirectory(addr string) Directory {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	cli, err := consulapi.NewClient(cfg)
	if err != nil {
		log.Printf("consul client init failed: %v", err)
	}
	return &ConsulDirectory{cli: cli}
}

func (d *ConsulDirectory) GetNode(alias string) (model.NodeRecord, bool) {
	if d.cli == nil {
		return model.NodeRecord{}, false
	}
	kv, _, err := d.cli.KV().Get(consulNodePrefix+alias, nil)
	if err != nil || kv == nil {
		return model.NodeRecord{}, false
	}
	var n model.NodeRecord
	if err := json.Unmarshal(kv.Value, &n); err != nil {
		return model.NodeRecord{}, false
	}
	return n, true
}

func (d *ConsulDirectory) GetProject(name string) (model.ProjectRecord, bool) {
	if d.cli == nil {
		return model.ProjectRecord{}, false
	}
	kv, _, err := d.cli.KV().Get(consulProjectPrefix+name, nil)
	if err != nil || kv == nil {
		return model.ProjectRecord{}, false
	}
	var p model.ProjectRecord
	if err := json.Unmarshal(kv.Value, &p); err != nil {
		return model.ProjectRecord{}, false
	}
	return p, true
}

func (d *ConsulDirectory) PutNode(n model.NodeRecord) {
	if d.cli == nil {
		return
	}
	b, err := json.Marshal(n)
	if err != nil {
		return
	}
	if _, err := d.cli.KV().Put(&consulapi.KVPair{Key: consulNodePrefix + n.Alias, Value: b}, nil); err != nil {
		log.Printf("consul put node %s failed: %v", n.Alias, err)
	}
}

func (d *ConsulDirectory) ReplaceProjects(records []model.ProjectRecord) {
	if d.cli == nil {
		return
	}
	ops := consulapi.KVTxnOps{
		&consulapi.KVTxnOp{Verb: consulapi.KVDeleteTree, Key: consulProjectPrefix},
	}
	for _, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			continue
		}
		ops = append(ops, &consulapi.KVTxnOp{
			Verb:  consulapi.KVSet,
			Key:   consulProjectPrefix + r.Name,
			Value: b,
		})
	}
	ok, _, _, err := d.cli.KV().Txn(ops, nil)
	if err != nil || !ok {
		log.Printf("consul project snapshot swap failed: %v", err)
	}
}

func (d *ConsulDirectory) Nodes() []model.NodeRecord {
	if d.cli == nil {
		return nil
	}
	pairs, _, err := d.cli.KV().List(consulNodePrefix, nil)
	if err != nil {
		return nil
	}
	var out []model.NodeRecord
	for _, kv := range pairs {
		var n model.NodeRecord
		if err := json.Unmarshal(kv.Value, &n); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func (d *ConsulDirectory) Projects() []model.ProjectRecord {
	if d.cli == nil {
		return nil
	}
	pairs, _, err := d.cli.KV().List(consulProjectPrefix, nil)
	if err != nil {
		return nil
	}
	var out []model.ProjectRecord
	for _, kv := range pairs {
		var p model.ProjectRecord
		if err := json.Unmarshal(kv.Value, &p); err == nil {
			out = append(out, p)
		}
	}
	return out
}
