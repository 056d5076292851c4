package ontology

import (
	_ "embed"
	"fmt"

	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Reference is one auxiliary table reachable from a record kind's root
// table by joining on a shared key column.
type Reference struct {
	Table      string
	JoinKey    string
	Bitemporal bool
	Columns    map[Column]struct{}
}

// RootTable is the FROM table for one record kind.
type RootTable struct {
	Table      string
	JoinKey    string
	Bitemporal bool
	Columns    map[Column]struct{}
}

// RecordCatalog is the per-RecordKind table description: one root plus its
// references, in declared order (declaration order is the order the Join
// Planner prefers when a terminal column could be reached via more than one
// reference — ties never occur in this catalog since each column lives on
// exactly one table).
type RecordCatalog struct {
	Kind       RecordKind
	Root       RootTable
	References []Reference
}

// EdgeDescriptor statically describes one traversable edge.
type EdgeDescriptor struct {
	Kind              EdgeKind
	Table             string
	SourceKind        RecordKind
	TargetKind        RecordKind
	SourceJoinColumn  string
	TargetJoinColumn  string
	SupportsDepth     bool
}

// Catalog is the static, read-only description of every physical table,
// column, and edge the compiler can reference. It is built once (via
// NewDefaultCatalog) and shared across every compilation.
type Catalog struct {
	records map[RecordKind]RecordCatalog
	edges   map[EdgeKind]EdgeDescriptor
}

type yamlCatalog struct {
	Records []struct {
		Kind string `yaml:"kind"`
		Root struct {
			Table      string   `yaml:"table"`
			JoinKey    string   `yaml:"join_key"`
			Bitemporal bool     `yaml:"bitemporal"`
			Columns    []string `yaml:"columns"`
		} `yaml:"root"`
		References []struct {
			Table      string   `yaml:"table"`
			JoinKey    string   `yaml:"join_key"`
			Bitemporal bool     `yaml:"bitemporal"`
			Columns    []string `yaml:"columns"`
		} `yaml:"references"`
	} `yaml:"records"`
	Edges []struct {
		Kind             string `yaml:"kind"`
		Table            string `yaml:"table"`
		SourceKind       string `yaml:"source_kind"`
		TargetKind       string `yaml:"target_kind"`
		SourceJoinColumn string `yaml:"source_join_column"`
		TargetJoinColumn string `yaml:"target_join_column"`
		SupportsDepth    bool   `yaml:"supports_depth"`
	} `yaml:"edges"`
}

var kindByName = map[string]RecordKind{
	"DataType":     DataType,
	"PropertyType": PropertyType,
	"EntityType":   EntityType,
	"Entity":       Entity,
}

var edgeByName = map[string]EdgeKind{
	"InheritsFrom":                 InheritsFrom,
	"ConstrainsPropertiesOn":       ConstrainsPropertiesOn,
	"ConstrainsLinksOn":            ConstrainsLinksOn,
	"ConstrainsLinkDestinationsOn": ConstrainsLinkDestinationsOn,
	"ConstrainsValuesOn":           ConstrainsValuesOn,
	"HasLeftEntity":                HasLeftEntity,
	"HasRightEntity":               HasRightEntity,
	"IsOfType":                     IsOfType,
}

func columnSet(names []string) map[Column]struct{} {
	out := make(map[Column]struct{}, len(names))
	for _, n := range names {
		out[Column(n)] = struct{}{}
	}
	return out
}

// NewDefaultCatalog parses the embedded catalog.yaml into a Catalog. It
// panics on malformed embedded data, which would indicate a build-time
// packaging error rather than a runtime condition callers should handle.
func NewDefaultCatalog() *Catalog {
	var raw yamlCatalog
	if err := yaml.Unmarshal(catalogYAML, &raw); err != nil {
		panic(fmt.Errorf("ontology: embedded catalog.yaml is invalid: %w", err))
	}

	c := &Catalog{
		records: make(map[RecordKind]RecordCatalog, len(raw.Records)),
		edges:   make(map[EdgeKind]EdgeDescriptor, len(raw.Edges)),
	}

	for _, r := range raw.Records {
		kind, ok := kindByName[r.Kind]
		if !ok {
			panic(fmt.Errorf("ontology: unknown record kind %q in catalog.yaml", r.Kind))
		}
		root := RootTable{
			Table:      r.Root.Table,
			JoinKey:    r.Root.JoinKey,
			Bitemporal: r.Root.Bitemporal,
			Columns:    columnSet(r.Root.Columns),
		}
		if root.Table == "" {
			root.Table = pluralTableName(kind)
		}
		refs := make([]Reference, 0, len(r.References))
		for _, ref := range r.References {
			refs = append(refs, Reference{
				Table:      ref.Table,
				JoinKey:    ref.JoinKey,
				Bitemporal: ref.Bitemporal,
				Columns:    columnSet(ref.Columns),
			})
		}
		c.records[kind] = RecordCatalog{Kind: kind, Root: root, References: refs}
	}

	for _, e := range raw.Edges {
		kind, ok := edgeByName[e.Kind]
		if !ok {
			panic(fmt.Errorf("ontology: unknown edge kind %q in catalog.yaml", e.Kind))
		}
		srcKind, ok := kindByName[e.SourceKind]
		if !ok {
			panic(fmt.Errorf("ontology: unknown edge source kind %q in catalog.yaml", e.SourceKind))
		}
		dstKind, ok := kindByName[e.TargetKind]
		if !ok {
			panic(fmt.Errorf("ontology: unknown edge target kind %q in catalog.yaml", e.TargetKind))
		}
		c.edges[kind] = EdgeDescriptor{
			Kind:             kind,
			Table:            e.Table,
			SourceKind:       srcKind,
			TargetKind:       dstKind,
			SourceJoinColumn: e.SourceJoinColumn,
			TargetJoinColumn: e.TargetJoinColumn,
			SupportsDepth:    e.SupportsDepth,
		}
	}

	return c
}

// pluralTableName derives a default physical table name from a record kind
// by pluralizing its snake_case form.
func pluralTableName(kind RecordKind) string {
	return inflect.Pluralize(toSnakeCase(kind.String()))
}

func toSnakeCase(s string) string {
	out := make([]byte, 0, len(s)+4)
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out = append(out, '_')
			}
			out = append(out, byte(r-'A'+'a'))
			continue
		}
		out = append(out, byte(r))
	}
	return string(out)
}

// Record returns the RecordCatalog for kind.
func (c *Catalog) Record(kind RecordKind) (RecordCatalog, bool) {
	rc, ok := c.records[kind]
	return rc, ok
}

// Edge returns the EdgeDescriptor for kind.
func (c *Catalog) Edge(kind EdgeKind) (EdgeDescriptor, bool) {
	e, ok := c.edges[kind]
	return e, ok
}
