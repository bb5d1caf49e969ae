package graphstore

import "fmt"

// Options configures New's provider selection (spec §6's graph_store.*
// config keys).
type Options struct {
	Provider Provider
	DataDir  string // badger
	URI      string // neo4j
	Username string
	Password string
	Database string
}

// New opens the Store named by opts.Provider.
func New(opts Options) (Store, error) {
	switch opts.Provider {
	case ProviderNeo4j:
		return NewNeo4jStore(opts.URI, opts.Username, opts.Password, opts.Database)
	case ProviderBadger, "":
		return NewBadgerStore(opts.DataDir)
	default:
		return nil, fmt.Errorf("graphstore: unknown provider %q", opts.Provider)
	}
}
