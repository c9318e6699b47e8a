package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore implements Provider on a Neo4j database. The class catalog is
// persisted as SchemaClass and SchemaProperty nodes; raw statements are
// Cypher executed in an explicit transaction of the session.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4jStore creates a driver for uri. An empty database selects the
// server default.
func NewNeo4jStore(uri, username, password, database string, logger *slog.Logger) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	return &Neo4jStore{driver: driver, database: database, logger: logger}, nil
}

func (n *Neo4jStore) query(ctx context.Context, database, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	res, err := neo4j.ExecuteQuery(ctx, n.driver, cypher, params,
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(database))
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// EnsureDatabase creates the configured database through the system
// database when it does not exist. The server default database is assumed
// to exist.
func (n *Neo4jStore) EnsureDatabase(ctx context.Context) (bool, error) {
	if err := n.driver.VerifyConnectivity(ctx); err != nil {
		return false, fmt.Errorf("connecting to neo4j: %w", err)
	}
	if n.database == "" {
		return false, nil
	}
	recs, err := n.query(ctx, "system",
		"SHOW DATABASES YIELD name WHERE name = $name RETURN name", map[string]any{"name": n.database})
	if err != nil {
		return false, fmt.Errorf("listing databases: %w", err)
	}
	if len(recs) > 0 {
		n.logger.Info("neo4j database found", "database", n.database)
		return false, nil
	}
	if _, err := n.query(ctx, "system",
		"CREATE DATABASE $name IF NOT EXISTS WAIT", map[string]any{"name": n.database}); err != nil {
		return false, fmt.Errorf("creating database %s: %w", n.database, err)
	}
	n.logger.Info("created neo4j database", "database", n.database)
	return true, nil
}

// Open returns a write session on the configured database.
func (n *Neo4jStore) Open(ctx context.Context) (Session, error) {
	sess := n.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: n.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	return &neoSession{store: n, sess: sess}, nil
}

// Ping verifies connectivity.
func (n *Neo4jStore) Ping(ctx context.Context) error {
	return n.driver.VerifyConnectivity(ctx)
}

// Close closes the driver.
func (n *Neo4jStore) Close() error {
	return n.driver.Close(context.Background())
}

// catalog runs a catalog query on the store database in its own managed
// transaction. Neo4j does not allow schema commands and data writes in one
// transaction, so catalog writes never share the session's explicit one.
func (n *Neo4jStore) catalog(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	return n.query(ctx, n.database, cypher, params)
}

type neoSession struct {
	store *Neo4jStore
	sess  neo4j.SessionWithContext
	tx    neo4j.ExplicitTransaction
}

func (s *neoSession) Schema() Schema { return &neoSchema{store: s.store} }

func (s *neoSession) Indexes(ctx context.Context) ([]string, error) {
	recs, err := s.store.catalog(ctx, "SHOW INDEXES YIELD name RETURN name ORDER BY name", nil)
	if err != nil {
		return nil, fmt.Errorf("listing indexes: %w", err)
	}
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, recordString(r, "name"))
	}
	return names, nil
}

func (s *neoSession) Execute(ctx context.Context, statement string) error {
	if s.tx == nil {
		tx, err := s.sess.BeginTransaction(ctx)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		s.tx = tx
	}
	res, err := s.tx.Run(ctx, statement, nil)
	if err == nil {
		_, err = res.Consume(ctx)
	}
	if err != nil {
		// A failed statement poisons the transaction on the server.
		_ = s.tx.Rollback(ctx)
		s.tx = nil
		return fmt.Errorf("executing statement: %w", err)
	}
	return nil
}

func (s *neoSession) RebuildIndexes(ctx context.Context) error {
	if _, err := s.store.catalog(ctx, "CALL db.resampleOutdatedIndexes()", nil); err != nil {
		return fmt.Errorf("resampling indexes: %w", err)
	}
	if _, err := s.store.catalog(ctx, "CALL db.awaitIndexes(300)", nil); err != nil {
		return fmt.Errorf("awaiting indexes: %w", err)
	}
	return nil
}

func (s *neoSession) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit(ctx)
	s.tx = nil
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (s *neoSession) Close() error {
	ctx := context.Background()
	if s.tx != nil {
		_ = s.tx.Rollback(ctx)
		s.tx = nil
	}
	return s.sess.Close(ctx)
}

type neoSchema struct {
	store *Neo4jStore
}

func (sc *neoSchema) Classes(ctx context.Context) ([]string, error) {
	recs, err := sc.store.catalog(ctx, "MATCH (c:SchemaClass) RETURN c.name AS name ORDER BY name", nil)
	if err != nil {
		return nil, fmt.Errorf("listing classes: %w", err)
	}
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, recordString(r, "name"))
	}
	return names, nil
}

func (sc *neoSchema) ExistsClass(ctx context.Context, name string) (bool, error) {
	recs, err := sc.store.catalog(ctx,
		"MATCH (c:SchemaClass {name: $name}) RETURN count(c) AS n", map[string]any{"name": name})
	if err != nil {
		return false, fmt.Errorf("checking class %s: %w", name, err)
	}
	return len(recs) > 0 && recordInt(recs[0], "n") > 0, nil
}

func (sc *neoSchema) Class(ctx context.Context, name string) (Class, error) {
	ok, err := sc.ExistsClass(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("class %s: %w", name, ErrNotFound)
	}
	return &neoClass{store: sc.store, name: name}, nil
}

func (sc *neoSchema) GetOrCreateClass(ctx context.Context, name string) (Class, error) {
	_, err := sc.store.catalog(ctx,
		"MERGE (c:SchemaClass {name: $name}) ON CREATE SET c.abstract = false, c.superclass = ''",
		map[string]any{"name": name})
	if err != nil {
		return nil, fmt.Errorf("creating class %s: %w", name, err)
	}
	return &neoClass{store: sc.store, name: name}, nil
}

type neoClass struct {
	store *Neo4jStore
	name  string
}

func (c *neoClass) Name() string { return c.name }

func (c *neoClass) Attribute(ctx context.Context, attr ClassAttribute) (any, error) {
	key, err := classKey(attr)
	if err != nil {
		return nil, err
	}
	recs, err := c.store.catalog(ctx,
		fmt.Sprintf("MATCH (c:SchemaClass {name: $name}) RETURN c.%s AS v", key), map[string]any{"name": c.name})
	if err != nil {
		return nil, fmt.Errorf("reading class %s: %w", c.name, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("class %s: %w", c.name, ErrNotFound)
	}
	v, _ := recs[0].Get("v")
	return decodeClassAttribute(attr, v), nil
}

func (c *neoClass) SetAttribute(ctx context.Context, attr ClassAttribute, value any) error {
	key, err := classKey(attr)
	if err != nil {
		return err
	}
	switch attr {
	case ClassAbstract:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("class %s: ABSTRACT wants bool, got %T", c.name, value)
		}
	case ClassSuperclass:
		sup, ok := value.(string)
		if !ok {
			return fmt.Errorf("class %s: SUPERCLASS wants string, got %T", c.name, value)
		}
		if sup != "" {
			exists, err := (&neoSchema{store: c.store}).ExistsClass(ctx, sup)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("superclass %s: %w", sup, ErrNotFound)
			}
		}
	}
	_, err = c.store.catalog(ctx,
		fmt.Sprintf("MATCH (c:SchemaClass {name: $name}) SET c.%s = $value", key),
		map[string]any{"name": c.name, "value": value})
	if err != nil {
		return fmt.Errorf("setting %s on class %s: %w", attr, c.name, err)
	}
	return nil
}

func (c *neoClass) ExistsProperty(ctx context.Context, name string) (bool, error) {
	recs, err := c.store.catalog(ctx,
		"MATCH (p:SchemaProperty {class: $class, name: $name}) RETURN count(p) AS n",
		map[string]any{"class": c.name, "name": name})
	if err != nil {
		return false, fmt.Errorf("checking property %s.%s: %w", c.name, name, err)
	}
	return len(recs) > 0 && recordInt(recs[0], "n") > 0, nil
}

func (c *neoClass) Property(ctx context.Context, name string) (Property, error) {
	ok, err := c.ExistsProperty(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("property %s.%s: %w", c.name, name, ErrNotFound)
	}
	return &neoProperty{store: c.store, class: c.name, name: name}, nil
}

func (c *neoClass) CreateProperty(ctx context.Context, name string, typ Type) (Property, error) {
	_, err := c.store.catalog(ctx, `
		MATCH (c:SchemaClass {name: $class})
		CREATE (p:SchemaProperty {class: $class, name: $name, type: $type,
			mandatory: false, notNull: false, regexp: '', linkedClass: '', linkedType: ''})
		CREATE (c)-[:HAS_PROPERTY]->(p)`,
		map[string]any{"class": c.name, "name": name, "type": typ.String()})
	if err != nil {
		return nil, fmt.Errorf("creating property %s.%s: %w", c.name, name, err)
	}
	return &neoProperty{store: c.store, class: c.name, name: name}, nil
}

func (c *neoClass) DropProperty(ctx context.Context, name string) error {
	recs, err := c.store.catalog(ctx,
		"MATCH (p:SchemaProperty {class: $class, name: $name}) DETACH DELETE p RETURN count(*) AS n",
		map[string]any{"class": c.name, "name": name})
	if err != nil {
		return fmt.Errorf("dropping property %s.%s: %w", c.name, name, err)
	}
	if len(recs) == 0 || recordInt(recs[0], "n") == 0 {
		return fmt.Errorf("property %s.%s: %w", c.name, name, ErrNotFound)
	}
	return nil
}

func (c *neoClass) HasIndex(ctx context.Context, name string) (bool, error) {
	recs, err := c.store.catalog(ctx,
		"SHOW INDEXES YIELD name, labelsOrTypes WHERE name = $name RETURN labelsOrTypes",
		map[string]any{"name": name})
	if err != nil {
		return false, fmt.Errorf("checking index %s on %s: %w", name, c.name, err)
	}
	for _, r := range recs {
		if slices.Contains(recordStrings(r, "labelsOrTypes"), c.name) {
			return true, nil
		}
	}
	return false, nil
}

type neoProperty struct {
	store *Neo4jStore
	class string
	name  string
}

func (p *neoProperty) Name() string { return p.name }

func (p *neoProperty) params(extra map[string]any) map[string]any {
	out := map[string]any{"class": p.class, "name": p.name}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (p *neoProperty) Type(ctx context.Context) (Type, error) {
	recs, err := p.store.catalog(ctx,
		"MATCH (p:SchemaProperty {class: $class, name: $name}) RETURN p.type AS type", p.params(nil))
	if err != nil {
		return TypeNone, fmt.Errorf("reading property %s.%s: %w", p.class, p.name, err)
	}
	if len(recs) == 0 {
		return TypeNone, fmt.Errorf("property %s.%s: %w", p.class, p.name, ErrNotFound)
	}
	return ParseType(recordString(recs[0], "type"))
}

func (p *neoProperty) SetType(ctx context.Context, typ Type) error {
	_, err := p.store.catalog(ctx,
		"MATCH (p:SchemaProperty {class: $class, name: $name}) SET p.type = $type",
		p.params(map[string]any{"type": typ.String()}))
	if err != nil {
		return fmt.Errorf("setting type of %s.%s: %w", p.class, p.name, err)
	}
	return nil
}

func (p *neoProperty) Attribute(ctx context.Context, attr PropertyAttribute) (any, error) {
	key, err := propertyKey(attr)
	if err != nil {
		return nil, err
	}
	recs, err := p.store.catalog(ctx,
		fmt.Sprintf("MATCH (p:SchemaProperty {class: $class, name: $name}) RETURN p.%s AS v", key), p.params(nil))
	if err != nil {
		return nil, fmt.Errorf("reading %s of %s.%s: %w", attr, p.class, p.name, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("property %s.%s: %w", p.class, p.name, ErrNotFound)
	}
	v, _ := recs[0].Get("v")
	return decodePropertyAttribute(attr, v)
}

func (p *neoProperty) SetAttribute(ctx context.Context, attr PropertyAttribute, value any) error {
	key, err := propertyKey(attr)
	if err != nil {
		return err
	}
	encoded, err := encodePropertyAttribute(attr, value)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", p.class, p.name, err)
	}
	_, err = p.store.catalog(ctx,
		fmt.Sprintf("MATCH (p:SchemaProperty {class: $class, name: $name}) SET p.%s = $value", key),
		p.params(map[string]any{"value": encoded}))
	if err != nil {
		return fmt.Errorf("setting %s of %s.%s: %w", attr, p.class, p.name, err)
	}
	return nil
}

func classKey(attr ClassAttribute) (string, error) {
	switch attr {
	case ClassAbstract:
		return "abstract", nil
	case ClassSuperclass:
		return "superclass", nil
	}
	return "", fmt.Errorf("unsupported class attribute %s", attr)
}

func propertyKey(attr PropertyAttribute) (string, error) {
	switch attr {
	case PropMandatory:
		return "mandatory", nil
	case PropNotNull:
		return "notNull", nil
	case PropRegexp:
		return "regexp", nil
	case PropLinkedClass:
		return "linkedClass", nil
	case PropLinkedType:
		return "linkedType", nil
	}
	return "", fmt.Errorf("unsupported property attribute %s", attr)
}

// decodeClassAttribute maps a stored node value back to the attribute's Go
// type; a missing value reads as the zero attribute.
func decodeClassAttribute(attr ClassAttribute, v any) any {
	switch attr {
	case ClassAbstract:
		if b, ok := v.(bool); ok {
			return b
		}
	case ClassSuperclass:
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ZeroClassAttribute(attr)
}

func decodePropertyAttribute(attr PropertyAttribute, v any) (any, error) {
	switch attr {
	case PropMandatory, PropNotNull:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case PropLinkedType:
		if s, ok := v.(string); ok {
			return ParseType(s)
		}
	default:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return ZeroPropertyAttribute(attr), nil
}

func encodePropertyAttribute(attr PropertyAttribute, value any) (any, error) {
	switch attr {
	case PropMandatory, PropNotNull:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case PropLinkedType:
		if t, ok := value.(Type); ok {
			return t.String(), nil
		}
	default:
		if s, ok := value.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("bad value %T for %s", value, attr)
}

func recordString(r *neo4j.Record, key string) string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func recordInt(r *neo4j.Record, key string) int64 {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

func recordStrings(r *neo4j.Record, key string) []string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
