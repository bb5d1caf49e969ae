// Package kortex provides a temporal knowledge graph service for Go.
//
// Kortex ingests episodes — messages, documents, or structured events —
// into a bi-temporal knowledge graph and answers hybrid search queries
// over it with citations back to the supporting episodes. It supports
// real-time incremental updates: a changed fact expires its old edge and
// creates a new one rather than overwriting history.
//
// # Basic Usage
//
// Create a new Client with the required components:
//
//	store, err := graphstore.NewBadgerStore("./kortex_data")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	llmConfig := llmclient.Config{Model: "gpt-4o-mini"}
//	llm, err := llmclient.NewOpenAIClient("your-api-key", llmConfig)
//
//	embConfig := embedder.Config{Model: "text-embedding-3-small"}
//	embed := embedder.NewOpenAIEmbedder("your-api-key", embConfig)
//
//	client, err := kortex.NewClient(store, llm, embed, &kortex.Config{GroupID: "my-group"}, nil)
//
// # Ingesting Episodes
//
// Episodes are queued for asynchronous extraction:
//
//	err = client.Ingest(ctx, &types.Episode{
//		UUID:          uuid.NewString(),
//		GroupID:       "my-group",
//		Name:          "Team Meeting",
//		Content:       "Discussed project timeline with Alice and Bob",
//		ReferenceTime: time.Now(),
//	})
//
// # Searching
//
// Perform hybrid search across the knowledge graph:
//
//	results, err := client.Search(ctx, &types.SearchConfig{GroupID: "my-group", Query: "project timeline"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, entity := range results.Entities {
//		fmt.Printf("Found entity: %s\n", entity.Name)
//	}
//
// # Temporal Awareness
//
// Every entity and edge carries both system time (CreatedAt, and for
// edges ExpiredAt) and valid time (ValidAt, InvalidAt) — the distinction
// between when the graph learned a fact and when that fact was true in
// the world.
//
// # Multi-tenancy
//
// Use GroupID to isolate data for different users or contexts. The
// Resolver never merges entities across group boundaries.
//
// # Error Handling
//
// pkg/kerr classifies every error the graph store, resolver, and
// mutation service return by kind (not found, conflict, validation)
// rather than relying on sentinel values or string matching.
//
// # Architecture
//
//   - pkg/graphstore: graph store abstraction (embedded Badger, Neo4j)
//   - pkg/llmclient: language model client interfaces
//   - pkg/embedder: embedding model client interfaces
//   - pkg/types: core type definitions
//   - pkg/orchestrator, pkg/resolver, pkg/queue: the ingestion pipeline
//   - pkg/search, pkg/citation, pkg/mutation: the query and correction surface
//   - pkg/server: the HTTP edge exposing the same operations as this package
//
// This design allows easy extension with additional graph store
// backends, LLM providers, and embedding services.
package kortex
