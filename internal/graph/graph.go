// Package graph builds an in-memory directed graph of a repository's
// files connected by wiki-links, for traversal queries that the Store's
// relational tables do not answer directly: shortest path between two
// notes, orphan-note detection, and heading outlines. It is purely a
// read-side derivative of internal/store's Link and Tag tables — nothing
// here is persisted.
package graph

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	dgraph "github.com/dominikbraun/graph"

	"github.com/urbanisierung/knowledge-index/internal/kerrors"
	"github.com/urbanisierung/knowledge-index/internal/store"
)

// Node is a single file vertex in the knowledge graph.
type Node struct {
	FileID   int64
	RepoID   int64
	RelPath  string
	Tags     []string
}

// id is the vertex hash: repository-scoped so two repositories can never
// collide on relative path.
func (n Node) id() string {
	return fmt.Sprintf("%d:%s", n.RepoID, n.RelPath)
}

// Graph is a built, queryable knowledge graph for one or more repositories.
type Graph struct {
	g       dgraph.Graph[string, Node]
	byStem  map[string][]string // lowercased file stem -> vertex ids sharing it
}

// Build loads every File, Link and Tag row visible to s and constructs the
// directed graph. Link targets are resolved to a File by case-insensitive
// match against the file's basename without extension (the `[[Name]]`
// convention); unresolved targets simply produce no edge, the same as a
// dangling link in Store.GetBacklinks.
func Build(ctx context.Context, s *store.Store) (*Graph, error) {
	repos, err := s.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}

	g := dgraph.New(func(n Node) string { return n.id() }, dgraph.Directed())
	byStem := make(map[string][]string)

	allTags, err := s.AllTags(ctx)
	if err != nil {
		return nil, err
	}

	fileIDToNode := make(map[int64]Node)

	for _, repo := range repos {
		files, err := s.ListFiles(ctx, repo.ID)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			n := Node{FileID: f.ID, RepoID: f.RepositoryID, RelPath: f.RelPath, Tags: allTags[f.ID]}
			if err := g.AddVertex(n); err != nil && err != dgraph.ErrVertexAlreadyExists {
				return nil, kerrors.Wrap(kerrors.Storage, "add graph vertex", err)
			}
			fileIDToNode[f.ID] = n
			stem := strings.ToLower(stemOf(f.RelPath))
			byStem[stem] = append(byStem[stem], n.id())
		}
	}

	links, err := s.AllLinks(ctx)
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		from, ok := fileIDToNode[link.SourceFileID]
		if !ok {
			continue
		}
		for _, toID := range byStem[strings.ToLower(link.Target)] {
			if toID == from.id() {
				continue
			}
			if err := g.AddEdge(from.id(), toID); err != nil && err != dgraph.ErrEdgeAlreadyExists {
				continue
			}
		}
	}

	return &Graph{g: g, byStem: byStem}, nil
}

func stemOf(relPath string) string {
	base := filepath.Base(relPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ShortestPath returns the sequence of "repoID:relPath" vertex ids on the
// shortest link path from one note to another, following wiki-links in
// the direction they were written.
func (kg *Graph) ShortestPath(fromRepoID int64, fromRelPath string, toRepoID int64, toRelPath string) ([]string, error) {
	from := fmt.Sprintf("%d:%s", fromRepoID, fromRelPath)
	to := fmt.Sprintf("%d:%s", toRepoID, toRelPath)
	path, err := dgraph.ShortestPath(kg.g, from, to)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.NotFound, "no path between notes", err)
	}
	return path, nil
}

// Orphans returns every file with neither an outgoing nor an incoming
// wiki-link: notes that no traversal of the graph can reach or leave,
// found as the size-1 strongly connected components with no edge in
// either direction.
func (kg *Graph) Orphans() ([]Node, error) {
	components, err := dgraph.StronglyConnectedComponents(kg.g)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "compute connected components", err)
	}
	adjacency, err := kg.g.AdjacencyMap()
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "build adjacency map", err)
	}
	predecessors, err := kg.g.PredecessorMap()
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "build predecessor map", err)
	}

	var out []Node
	for _, component := range components {
		if len(component) != 1 {
			continue
		}
		id := component[0]
		if len(adjacency[id]) > 0 || len(predecessors[id]) > 0 {
			continue
		}
		n, err := kg.g.Vertex(id)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// AdjacentVertices returns the vertex ids of every note that directly
// links to or from the given file.
func (kg *Graph) AdjacentVertices(repoID int64, relPath string) ([]string, error) {
	id := fmt.Sprintf("%d:%s", repoID, relPath)
	adjacency, err := kg.g.AdjacencyMap()
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "build adjacency map", err)
	}
	predecessors, err := kg.g.PredecessorMap()
	if err != nil {
		return nil, kerrors.Wrap(kerrors.Storage, "build predecessor map", err)
	}

	seen := make(map[string]bool)
	var out []string
	for target := range adjacency[id] {
		if !seen[target] {
			seen[target] = true
			out = append(out, target)
		}
	}
	for source := range predecessors[id] {
		if !seen[source] {
			seen[source] = true
			out = append(out, source)
		}
	}
	return out, nil
}
