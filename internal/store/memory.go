package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory implementation of Provider for testing. It
// keeps a class catalog, counts every mutating call and records executed
// statements so tests can assert on what a reconciliation run did.
type MemoryStore struct {
	mu        sync.RWMutex
	exists    bool
	classes   map[string]*memClass
	indexes   map[string]string // index name -> owning class
	calls     []Call
	executed  []string
	rebuilds  int
	opens     int
	failStmts map[string]error
}

// Call is one mutating call recorded by MemoryStore.
type Call struct {
	Op     string
	Target string
	Value  any
}

type memClass struct {
	name       string
	abstract   bool
	superclass string
	props      map[string]*memProperty
}

type memProperty struct {
	name        string
	typ         Type
	mandatory   bool
	notNull     bool
	regexp      string
	linkedClass string
	linkedType  Type
}

// NewMemoryStore creates an empty mock store. The database does not exist
// until EnsureDatabase is called.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		classes:   make(map[string]*memClass),
		indexes:   make(map[string]string),
		failStmts: make(map[string]error),
	}
}

// EnsureDatabase marks the database as existing and reports whether this
// call created it.
func (m *MemoryStore) EnsureDatabase(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exists {
		return false, nil
	}
	m.exists = true
	return true, nil
}

// Open returns a session over the shared catalog.
func (m *MemoryStore) Open(_ context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens++
	return &memSession{store: m}, nil
}

// Ping is a no-op for the mock store.
func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op for the mock store.
func (m *MemoryStore) Close() error { return nil }

// Mutations returns the number of mutating calls made so far.
func (m *MemoryStore) Mutations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded mutating calls.
func (m *MemoryStore) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// ResetCalls clears the recorded calls.
func (m *MemoryStore) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Executed returns the committed statements in execution order.
func (m *MemoryStore) Executed() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.executed))
	copy(out, m.executed)
	return out
}

// Rebuilds returns how many full index rebuilds were requested.
func (m *MemoryStore) Rebuilds() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rebuilds
}

// Opens returns how many sessions were opened.
func (m *MemoryStore) Opens() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opens
}

// FailStatements makes Execute fail with err for any statement containing
// substr.
func (m *MemoryStore) FailStatements(substr string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStmts[substr] = err
}

// AddIndex defines an index directly, bypassing statement execution.
func (m *MemoryStore) AddIndex(class, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexes[name] = class
}

// ValidateDocument checks a document against the constraints declared on
// the class and its superclasses.
func (m *MemoryStore) ValidateDocument(class string, doc map[string]any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classes[class]
	if !ok {
		return fmt.Errorf("class %s: %w", class, ErrNotFound)
	}
	seen := make(map[string]bool)
	for c != nil && !seen[c.name] {
		seen[c.name] = true
		for _, p := range c.props {
			v, present := doc[p.name]
			if p.mandatory && !present {
				return fmt.Errorf("%s.%s is mandatory", c.name, p.name)
			}
			if p.notNull && present && v == nil {
				return fmt.Errorf("%s.%s must not be null", c.name, p.name)
			}
			if p.regexp != "" && present && v != nil {
				re, err := regexp.Compile(p.regexp)
				if err != nil {
					return fmt.Errorf("%s.%s: compiling regexp: %w", c.name, p.name, err)
				}
				if !re.MatchString(fmt.Sprint(v)) {
					return fmt.Errorf("%s.%s: value %q does not match %s", c.name, p.name, v, p.regexp)
				}
			}
		}
		c = m.classes[c.superclass]
	}
	return nil
}

// record must be called with mu held.
func (m *MemoryStore) record(op, target string, value any) {
	m.calls = append(m.calls, Call{Op: op, Target: target, Value: value})
}

var createIndexRe = regexp.MustCompile("(?i)^\\s*CREATE\\s+(?:UNIQUE\\s+)?INDEX\\s+(?:IF\\s+NOT\\s+EXISTS\\s+)?`?([^\\s`(]+)`?(?:\\s+IF\\s+NOT\\s+EXISTS)?(?:\\s+(?:ON|FOR)\\s+(?:\\(\\w*:)?([A-Za-z_]\\w*))?")

// indexTarget extracts the index name and owning class from a CREATE INDEX
// statement. Without an explicit class the name prefix before the first
// dot is used, matching the "Class.property" naming convention.
func indexTarget(stmt string) (name, class string, ok bool) {
	mm := createIndexRe.FindStringSubmatch(stmt)
	if mm == nil {
		return "", "", false
	}
	name, class = mm[1], mm[2]
	if class == "" {
		class, _, _ = strings.Cut(name, ".")
	}
	return name, class, true
}

type memSession struct {
	store   *MemoryStore
	pending []string
	closed  bool
}

func (s *memSession) Schema() Schema { return &memSchema{store: s.store} }

func (s *memSession) Indexes(_ context.Context) ([]string, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	names := make([]string, 0, len(s.store.indexes))
	for n := range s.store.indexes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memSession) Execute(_ context.Context, statement string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session closed")
	}
	for substr, err := range s.store.failStmts {
		if strings.Contains(statement, substr) {
			return err
		}
	}
	s.store.record("execute", statement, nil)
	s.pending = append(s.pending, statement)
	return nil
}

func (s *memSession) RebuildIndexes(_ context.Context) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.record("rebuild", "*", nil)
	s.store.rebuilds++
	return nil
}

func (s *memSession) Commit(_ context.Context) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.record("commit", "", len(s.pending))
	for _, stmt := range s.pending {
		s.store.executed = append(s.store.executed, stmt)
		if name, class, ok := indexTarget(stmt); ok {
			s.store.indexes[name] = class
		}
	}
	s.pending = nil
	return nil
}

func (s *memSession) Close() error {
	s.pending = nil
	s.closed = true
	return nil
}

type memSchema struct {
	store *MemoryStore
}

func (sc *memSchema) Classes(_ context.Context) ([]string, error) {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	names := make([]string, 0, len(sc.store.classes))
	for n := range sc.store.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (sc *memSchema) ExistsClass(_ context.Context, name string) (bool, error) {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	_, ok := sc.store.classes[name]
	return ok, nil
}

func (sc *memSchema) Class(_ context.Context, name string) (Class, error) {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	if _, ok := sc.store.classes[name]; !ok {
		return nil, fmt.Errorf("class %s: %w", name, ErrNotFound)
	}
	return &memClassHandle{store: sc.store, name: name}, nil
}

func (sc *memSchema) GetOrCreateClass(_ context.Context, name string) (Class, error) {
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	if _, ok := sc.store.classes[name]; !ok {
		sc.store.classes[name] = &memClass{name: name, props: make(map[string]*memProperty)}
		sc.store.record("createClass", name, nil)
	}
	return &memClassHandle{store: sc.store, name: name}, nil
}

type memClassHandle struct {
	store *MemoryStore
	name  string
}

func (c *memClassHandle) Name() string { return c.name }

// get must be called with mu held.
func (c *memClassHandle) get() (*memClass, error) {
	cls, ok := c.store.classes[c.name]
	if !ok {
		return nil, fmt.Errorf("class %s: %w", c.name, ErrNotFound)
	}
	return cls, nil
}

func (c *memClassHandle) Attribute(_ context.Context, attr ClassAttribute) (any, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	cls, err := c.get()
	if err != nil {
		return nil, err
	}
	switch attr {
	case ClassAbstract:
		return cls.abstract, nil
	case ClassSuperclass:
		return cls.superclass, nil
	}
	return nil, fmt.Errorf("unsupported class attribute %s", attr)
}

func (c *memClassHandle) SetAttribute(_ context.Context, attr ClassAttribute, value any) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	cls, err := c.get()
	if err != nil {
		return err
	}
	switch attr {
	case ClassAbstract:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("class %s: ABSTRACT wants bool, got %T", c.name, value)
		}
		cls.abstract = b
	case ClassSuperclass:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("class %s: SUPERCLASS wants string, got %T", c.name, value)
		}
		if s != "" {
			if _, exists := c.store.classes[s]; !exists {
				return fmt.Errorf("superclass %s: %w", s, ErrNotFound)
			}
		}
		cls.superclass = s
	default:
		return fmt.Errorf("unsupported class attribute %s", attr)
	}
	c.store.record("setClassAttribute", c.name+"."+attr.String(), value)
	return nil
}

func (c *memClassHandle) ExistsProperty(_ context.Context, name string) (bool, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	cls, err := c.get()
	if err != nil {
		return false, err
	}
	_, ok := cls.props[name]
	return ok, nil
}

func (c *memClassHandle) Property(_ context.Context, name string) (Property, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	cls, err := c.get()
	if err != nil {
		return nil, err
	}
	if _, ok := cls.props[name]; !ok {
		return nil, fmt.Errorf("property %s.%s: %w", c.name, name, ErrNotFound)
	}
	return &memPropertyHandle{store: c.store, class: c.name, name: name}, nil
}

func (c *memClassHandle) CreateProperty(_ context.Context, name string, typ Type) (Property, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	cls, err := c.get()
	if err != nil {
		return nil, err
	}
	if _, ok := cls.props[name]; ok {
		return nil, fmt.Errorf("property %s.%s already exists", c.name, name)
	}
	cls.props[name] = &memProperty{name: name, typ: typ}
	c.store.record("createProperty", c.name+"."+name, typ)
	return &memPropertyHandle{store: c.store, class: c.name, name: name}, nil
}

func (c *memClassHandle) DropProperty(_ context.Context, name string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	cls, err := c.get()
	if err != nil {
		return err
	}
	if _, ok := cls.props[name]; !ok {
		return fmt.Errorf("property %s.%s: %w", c.name, name, ErrNotFound)
	}
	delete(cls.props, name)
	c.store.record("dropProperty", c.name+"."+name, nil)
	return nil
}

func (c *memClassHandle) HasIndex(_ context.Context, name string) (bool, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	owner, ok := c.store.indexes[name]
	return ok && owner == c.name, nil
}

type memPropertyHandle struct {
	store *MemoryStore
	class string
	name  string
}

func (p *memPropertyHandle) Name() string { return p.name }

// get must be called with mu held.
func (p *memPropertyHandle) get() (*memProperty, error) {
	cls, ok := p.store.classes[p.class]
	if !ok {
		return nil, fmt.Errorf("class %s: %w", p.class, ErrNotFound)
	}
	prop, ok := cls.props[p.name]
	if !ok {
		return nil, fmt.Errorf("property %s.%s: %w", p.class, p.name, ErrNotFound)
	}
	return prop, nil
}

func (p *memPropertyHandle) Type(_ context.Context) (Type, error) {
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()
	prop, err := p.get()
	if err != nil {
		return TypeNone, err
	}
	return prop.typ, nil
}

func (p *memPropertyHandle) SetType(_ context.Context, typ Type) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	prop, err := p.get()
	if err != nil {
		return err
	}
	prop.typ = typ
	p.store.record("setPropertyType", p.class+"."+p.name, typ)
	return nil
}

func (p *memPropertyHandle) Attribute(_ context.Context, attr PropertyAttribute) (any, error) {
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()
	prop, err := p.get()
	if err != nil {
		return nil, err
	}
	switch attr {
	case PropMandatory:
		return prop.mandatory, nil
	case PropNotNull:
		return prop.notNull, nil
	case PropRegexp:
		return prop.regexp, nil
	case PropLinkedClass:
		return prop.linkedClass, nil
	case PropLinkedType:
		return prop.linkedType, nil
	}
	return nil, fmt.Errorf("unsupported property attribute %s", attr)
}

func (p *memPropertyHandle) SetAttribute(_ context.Context, attr PropertyAttribute, value any) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	prop, err := p.get()
	if err != nil {
		return err
	}
	bad := fmt.Errorf("%s.%s: bad value %T for %s", p.class, p.name, value, attr)
	switch attr {
	case PropMandatory, PropNotNull:
		b, ok := value.(bool)
		if !ok {
			return bad
		}
		if attr == PropMandatory {
			prop.mandatory = b
		} else {
			prop.notNull = b
		}
	case PropRegexp:
		re, ok := value.(string)
		if !ok {
			return bad
		}
		if _, err := regexp.Compile(re); err != nil {
			return fmt.Errorf("%s.%s: invalid regexp: %w", p.class, p.name, err)
		}
		prop.regexp = re
	case PropLinkedClass:
		lc, ok := value.(string)
		if !ok {
			return bad
		}
		if lc != "" {
			if _, exists := p.store.classes[lc]; !exists {
				return fmt.Errorf("linked class %s: %w", lc, ErrNotFound)
			}
		}
		prop.linkedClass = lc
	case PropLinkedType:
		t, ok := value.(Type)
		if !ok {
			return bad
		}
		prop.linkedType = t
	default:
		return fmt.Errorf("unsupported property attribute %s", attr)
	}
	p.store.record("setPropertyAttribute", p.class+"."+p.name+"."+attr.String(), value)
	return nil
}
