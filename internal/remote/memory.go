package remote

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/shopsync/internal/model"
)

// Op names a Memory call for recording and failure injection.
type Op string

const (
	OpFetchDefinitions Op = "fetch_definitions"
	OpFetchEntities    Op = "fetch_entities"
	OpLookup           Op = "lookup"
	OpFind             Op = "find"
	OpCreateDefinition Op = "create_definition"
	OpUpdateDefinition Op = "update_definition"
	OpCreateEntity     Op = "create_entity"
	OpUpdateEntity     Op = "update_entity"
	OpDeleteEntity     Op = "delete_entity"
	OpSetFields        Op = "set_fields"
)

// IsWrite reports whether op mutates the deployment.
func (op Op) IsWrite() bool {
	switch op {
	case OpCreateDefinition, OpUpdateDefinition, OpCreateEntity, OpUpdateEntity, OpDeleteEntity, OpSetFields:
		return true
	}
	return false
}

// Call is one recorded Memory call. Only the payload matching Op is set.
type Call struct {
	Op  Op
	Key string

	Definition *model.Definition
	Update     *DefinitionUpdate
	Entity     *model.Entity
	Writes     []FieldWrite
}

// File is a stored file, referenced by gid and matched by file name.
type File struct {
	ID       string             `yaml:"id,omitempty"`
	Resource model.ResourceType `yaml:"resource"`
	Filename string             `yaml:"filename"`
}

// DefaultPageSize is the page size of Memory reads.
const DefaultPageSize = 50

// Memory is an in-memory deployment. It assigns its own ids, enforces the
// same natural-key uniqueness and reference validity as the platform, and
// records every call. Memory is safe for concurrent use.
type Memory struct {
	mu sync.Mutex

	name     string
	pageSize int
	pinLimit int
	nextID   int

	definitions []model.Definition
	entities    []model.Entity
	files       []File

	calls    []Call
	failures map[string][]error
}

// MemoryOption configures a Memory.
type MemoryOption func(*Memory)

// WithPageSize sets the number of items returned per page.
func WithPageSize(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.pageSize = n
		}
	}
}

// WithPinLimit caps the number of pinned definitions. Creating or updating
// a pinned definition beyond the cap is rejected with CodeFeatureLimit.
// Zero means unlimited.
func WithPinLimit(n int) MemoryOption {
	return func(m *Memory) {
		m.pinLimit = n
	}
}

// NewMemory creates an empty deployment. The name prefixes every id it
// assigns, so ids of two deployments never collide.
func NewMemory(name string, opts ...MemoryOption) *Memory {
	m := &Memory{
		name:     name,
		pageSize: DefaultPageSize,
		failures: make(map[string][]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the deployment name.
func (m *Memory) Name() string {
	return m.name
}

func (m *Memory) newID(r model.ResourceType) string {
	m.nextID++
	return model.BuildGID(r, m.name+"-"+strconv.Itoa(m.nextID))
}

// AddDefinition seeds a definition and returns it with its id.
func (m *Memory) AddDefinition(d model.Definition) model.Definition {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = m.newID(definitionResource(d.Kind))
	}
	m.definitions = append(m.definitions, d)
	return d
}

// AddEntity seeds an entity and returns it with its id.
func (m *Memory) AddEntity(e model.Entity) model.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = m.newID(entityResource(e.Kind))
	}
	m.entities = append(m.entities, e)
	return e
}

// AddFile seeds a file and returns its id.
func (m *Memory) AddFile(r model.ResourceType, filename string) string {
	return m.SeedFile(File{Resource: r, Filename: filename}).ID
}

// SeedFile stores f, assigning an id when it has none.
func (m *Memory) SeedFile(f File) File {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == "" {
		f.ID = m.newID(f.Resource)
	}
	m.files = append(m.files, f)
	return f
}

// Fail queues err as the result of the next call of op on key. An empty key
// matches any call of op. Queued errors are consumed in order, one per call.
// For lookups the key is the gid, for finds the RefKey string, for writes the
// natural key (or "namespace.key" for field writes).
func (m *Memory) Fail(op Op, key string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(op) + "|" + key
	m.failures[k] = append(m.failures[k], errs...)
}

// Reject queues an in-band rejection for the next call of op on key.
func (m *Memory) Reject(op Op, key string, errs ...UserError) {
	m.Fail(op, key, UserErrors(errs))
}

func (m *Memory) takeFailure(op Op, key string) error {
	for _, k := range []string{string(op) + "|" + key, string(op) + "|"} {
		if q := m.failures[k]; len(q) > 0 {
			m.failures[k] = q[1:]
			return q[0]
		}
	}
	return nil
}

func (m *Memory) takeExactFailure(op Op, key string) error {
	k := string(op) + "|" + key
	if q := m.failures[k]; len(q) > 0 {
		m.failures[k] = q[1:]
		return q[0]
	}
	return nil
}

func (m *Memory) record(c Call) {
	m.calls = append(m.calls, c)
}

// Calls returns every recorded call in order.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Writes returns the recorded mutating calls in order.
func (m *Memory) Writes() []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Op.IsWrite() {
			out = append(out, c)
		}
	}
	return out
}

// CallsOf returns the recorded calls of op.
func (m *Memory) CallsOf(op Op) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call record.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Definitions returns a copy of all definitions.
func (m *Memory) Definitions() []model.Definition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Definition, len(m.definitions))
	copy(out, m.definitions)
	return out
}

// Entities returns a copy of all entities of kind.
func (m *Memory) Entities(kind model.EntityKind) []model.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Entity
	for _, e := range m.entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Definition returns the definition of kind with the natural key.
func (m *Memory) Definition(kind model.DefinitionKind, naturalKey string) (model.Definition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.definitions {
		if d.Kind == kind && d.NaturalKey() == model.NormalizeDefinitionKey(kind, naturalKey) {
			return d, true
		}
	}
	return model.Definition{}, false
}

// Entity returns the entity of kind with the natural key.
func (m *Memory) Entity(kind model.EntityKind, naturalKey string) (model.Entity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.entityIndexByKey(kind, "", naturalKey)
	if i < 0 {
		return model.Entity{}, false
	}
	return m.entities[i], true
}

// FetchDefinitions implements Fetcher.
func (m *Memory) FetchDefinitions(_ context.Context, q DefinitionQuery, cursor string) ([]model.Definition, Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(Call{Op: OpFetchDefinitions, Key: string(q.Kind) + ":" + q.OwnerType + ":" + q.Namespace})
	if err := m.takeFailure(OpFetchDefinitions, ""); err != nil {
		return nil, Page{}, err
	}

	var matched []model.Definition
	for _, d := range m.definitions {
		if matchDefinition(d, q) {
			matched = append(matched, d)
		}
	}
	start, err := parseCursor(cursor)
	if err != nil {
		return nil, Page{}, err
	}
	page, info := paginate(matched, start, m.pageSize)
	return page, info, nil
}

func matchDefinition(d model.Definition, q DefinitionQuery) bool {
	if d.Kind != q.Kind {
		return false
	}
	if q.Kind == model.KindFieldDefinition {
		if q.OwnerType != "" && !strings.EqualFold(d.OwnerType, q.OwnerType) {
			return false
		}
		if q.Namespace != "" && d.Namespace != q.Namespace {
			return false
		}
	}
	if q.Key != "" {
		key := model.NormalizeDefinitionKey(q.Kind, q.Key)
		if d.NaturalKey() != key && model.NormalizeKey(d.Key) != key {
			return false
		}
	}
	return true
}

// FetchEntities implements Fetcher.
func (m *Memory) FetchEntities(_ context.Context, q EntityQuery, cursor string) ([]model.Entity, Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(Call{Op: OpFetchEntities, Key: string(q.Kind) + ":" + q.Type})
	if err := m.takeFailure(OpFetchEntities, ""); err != nil {
		return nil, Page{}, err
	}

	var matched []model.Entity
	for _, e := range m.entities {
		if e.Kind != q.Kind {
			continue
		}
		if q.Type != "" && model.NormalizeType(e.Type) != model.NormalizeType(q.Type) {
			continue
		}
		if q.Handle != "" && e.NaturalKey() != model.NormalizeKey(q.Handle) {
			continue
		}
		if q.ID != "" && e.ID != q.ID {
			continue
		}
		matched = append(matched, e)
	}
	start, err := parseCursor(cursor)
	if err != nil {
		return nil, Page{}, err
	}
	page, info := paginate(matched, start, m.pageSize)
	return page, info, nil
}

func parseCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(cursor)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid cursor %q", cursor)
	}
	return n, nil
}

func paginate[T any](items []T, start, size int) ([]T, Page) {
	if start >= len(items) {
		return nil, Page{}
	}
	end := start + size
	if end >= len(items) {
		return append([]T(nil), items[start:]...), Page{}
	}
	return append([]T(nil), items[start:end]...), Page{HasNextPage: true, EndCursor: strconv.Itoa(end)}
}

// LookupReference implements Fetcher.
func (m *Memory) LookupReference(_ context.Context, id string) (model.RefKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(Call{Op: OpLookup, Key: id})
	if err := m.takeFailure(OpLookup, id); err != nil {
		return model.RefKey{}, err
	}

	r, _, ok := model.ParseGID(id)
	if !ok {
		return model.RefKey{}, fmt.Errorf("lookup %q: malformed id", id)
	}

	switch {
	case r == model.ResourceMetaobjectDefinition:
		for _, d := range m.definitions {
			if d.ID == id {
				return model.RefKey{Resource: r, Type: d.Type}, nil
			}
		}
	case r.IsFile():
		for _, f := range m.files {
			if f.ID == id {
				return model.RefKey{Resource: r, Handle: f.Filename}, nil
			}
		}
	default:
		for _, e := range m.entities {
			if e.ID != id {
				continue
			}
			key := model.RefKey{Resource: r}
			switch e.Kind {
			case model.EntityMetaobject:
				key.Type, key.Handle = e.Type, e.Handle
			case model.EntityVariant:
				key.SKU, key.OwnerHandle, key.Options = e.SKU, e.OwnerHandle, e.Options
			default:
				key.Handle = e.Handle
			}
			return key, nil
		}
	}
	return model.RefKey{}, fmt.Errorf("lookup %s: %w", id, ErrNotFound)
}

// FindReference implements Fetcher.
func (m *Memory) FindReference(_ context.Context, key model.RefKey) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(Call{Op: OpFind, Key: key.String()})
	if err := m.takeFailure(OpFind, key.String()); err != nil {
		return "", err
	}

	switch {
	case key.Resource == model.ResourceMetaobjectDefinition:
		for _, d := range m.definitions {
			if d.Kind == model.KindTypeDefinition && d.NaturalKey() == model.NormalizeType(key.Type) {
				return d.ID, nil
			}
		}
	case key.Resource.IsFile():
		for _, f := range m.files {
			if f.Resource == key.Resource && f.Filename == key.Handle {
				return f.ID, nil
			}
		}
	case key.Resource == model.ResourceVariant:
		for _, e := range m.entities {
			if e.Kind != model.EntityVariant {
				continue
			}
			if key.SKU != "" {
				if e.SKU == key.SKU {
					return e.ID, nil
				}
				continue
			}
			if key.OwnerHandle != "" && e.OwnerHandle == key.OwnerHandle &&
				model.OptionsKey(e.Options) == model.OptionsKey(key.Options) {
				return e.ID, nil
			}
		}
	default:
		kind, ok := model.OwnerKindForResource(key.Resource)
		if !ok {
			break
		}
		if i := m.entityIndexByKey(kind.Entity, key.Type, key.Handle); i >= 0 {
			return m.entities[i].ID, nil
		}
	}
	return "", fmt.Errorf("find %s: %w", key, ErrNotFound)
}

// CreateDefinition implements Mutator.
func (m *Memory) CreateDefinition(_ context.Context, d model.Definition) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload := cloneDefinition(d)
	m.record(Call{Op: OpCreateDefinition, Key: d.NaturalKey(), Definition: &payload})
	if err := m.takeFailure(OpCreateDefinition, d.NaturalKey()); err != nil {
		return "", err
	}

	if m.definitionIndex(d.Kind, d.OwnerType, d.NaturalKey()) >= 0 {
		return "", UserErrors{{Field: []string{"definition", "key"}, Message: "Key is in use", Code: CodeTaken}}
	}
	if d.Pinned && m.pinLimit > 0 && m.pinnedCount(d.Kind, d.OwnerType) >= m.pinLimit {
		return "", UserErrors{{Field: []string{"definition"}, Message: "Limit of pinned definitions reached", Code: CodeFeatureLimit}}
	}
	if ue := m.checkRuleReferences(d.Validations); ue != nil {
		return "", ue
	}
	for _, f := range d.Fields {
		if ue := m.checkRuleReferences(f.Validations); ue != nil {
			return "", ue
		}
	}

	d.ID = m.newID(definitionResource(d.Kind))
	m.definitions = append(m.definitions, cloneDefinition(d))
	return d.ID, nil
}

// UpdateDefinition implements Mutator.
func (m *Memory) UpdateDefinition(_ context.Context, target model.Definition, u DefinitionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload := u
	m.record(Call{Op: OpUpdateDefinition, Key: target.NaturalKey(), Update: &payload})
	if err := m.takeFailure(OpUpdateDefinition, target.NaturalKey()); err != nil {
		return err
	}

	i := -1
	for j, d := range m.definitions {
		if d.ID == target.ID {
			i = j
			break
		}
	}
	if i < 0 {
		return UserErrors{{Field: []string{"id"}, Message: "Definition does not exist", Code: CodeMissing}}
	}
	d := m.definitions[i]
	if u.Pinned && !d.Pinned && m.pinLimit > 0 && m.pinnedCount(d.Kind, d.OwnerType) >= m.pinLimit {
		return UserErrors{{Field: []string{"definition"}, Message: "Limit of pinned definitions reached", Code: CodeFeatureLimit}}
	}
	if ue := m.checkRuleReferences(u.Validations); ue != nil {
		return ue
	}

	d.Name = u.Name
	d.Description = u.Description
	if u.DisplayNameKey != "" {
		d.DisplayNameKey = u.DisplayNameKey
	}
	d.Validations = append([]model.ValidationRule(nil), u.Validations...)
	d.Capabilities = model.NewCapabilities(u.Capabilities...)
	d.Pinned = u.Pinned
	for _, op := range u.FieldOps {
		j := -1
		for k, f := range d.Fields {
			if f.Key == op.Field.Key {
				j = k
				break
			}
		}
		switch {
		case op.Create && j >= 0:
			return UserErrors{{Field: []string{"fieldDefinitions", op.Field.Key}, Message: "Field already exists", Code: CodeTaken}}
		case op.Create:
			d.Fields = append(d.Fields, op.Field)
		case j < 0:
			return UserErrors{{Field: []string{"fieldDefinitions", op.Field.Key}, Message: "Field does not exist", Code: CodeMissing}}
		default:
			f := d.Fields[j]
			f.Name, f.Description, f.Required, f.Validations = op.Field.Name, op.Field.Description, op.Field.Required, op.Field.Validations
			d.Fields[j] = f
		}
	}
	m.definitions[i] = d
	return nil
}

// CreateEntity implements Mutator.
func (m *Memory) CreateEntity(_ context.Context, e model.Entity) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload := cloneEntity(e)
	m.record(Call{Op: OpCreateEntity, Key: e.NaturalKey(), Entity: &payload})
	if err := m.takeFailure(OpCreateEntity, e.NaturalKey()); err != nil {
		return "", err
	}

	if m.entityIndexByKey(e.Kind, e.Type, e.NaturalKey()) >= 0 {
		return "", UserErrors{{Field: []string{"handle"}, Message: "Handle has already been taken", Code: CodeTaken}}
	}
	if ue := m.checkEntity(e); ue != nil {
		return "", ue
	}
	e.ID = m.newID(entityResource(e.Kind))
	m.entities = append(m.entities, cloneEntity(e))
	return e.ID, nil
}

// UpdateEntity implements Mutator. Fields in e are merged into the stored
// entity by key; an empty value removes the field.
func (m *Memory) UpdateEntity(_ context.Context, id string, e model.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload := cloneEntity(e)
	m.record(Call{Op: OpUpdateEntity, Key: e.NaturalKey(), Entity: &payload})
	if err := m.takeFailure(OpUpdateEntity, e.NaturalKey()); err != nil {
		return err
	}

	i := m.entityIndexByID(id)
	if i < 0 {
		return UserErrors{{Field: []string{"id"}, Message: "Record not found", Code: CodeMissing}}
	}
	stored := m.entities[i]
	if ue := m.checkFieldReferences(e.Fields); ue != nil {
		return ue
	}
	if e.Title != "" {
		stored.Title = e.Title
	}
	if e.Status != "" {
		stored.Status = e.Status
	}
	for _, f := range e.Fields {
		stored.Fields = mergeField(stored.Fields, f)
	}
	m.entities[i] = stored
	return nil
}

// DeleteEntity implements Mutator.
func (m *Memory) DeleteEntity(_ context.Context, kind model.EntityKind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.entityIndexByID(id)
	key := id
	if i >= 0 {
		key = m.entities[i].NaturalKey()
	}
	m.record(Call{Op: OpDeleteEntity, Key: key})
	if err := m.takeFailure(OpDeleteEntity, key); err != nil {
		return err
	}
	if i < 0 || m.entities[i].Kind != kind {
		return UserErrors{{Field: []string{"id"}, Message: "Record not found", Code: CodeMissing}}
	}
	m.entities = append(m.entities[:i], m.entities[i+1:]...)
	return nil
}

// SetFields implements Mutator.
func (m *Memory) SetFields(_ context.Context, writes []FieldWrite) (UserErrors, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(Call{Op: OpSetFields, Key: strconv.Itoa(len(writes)), Writes: append([]FieldWrite(nil), writes...)})
	if err := m.takeFailure(OpSetFields, ""); err != nil {
		return nil, err
	}
	if len(writes) > MaxFieldWrites {
		return nil, fmt.Errorf("set fields: %d inputs exceed the maximum of %d", len(writes), MaxFieldWrites)
	}

	var rejected UserErrors
	for i, w := range writes {
		path := []string{"metafields", strconv.Itoa(i)}
		if err := m.takeExactFailure(OpSetFields, w.FieldKey()); err != nil {
			if ue, ok := AsUserErrors(err); ok {
				for _, u := range ue {
					u.Field = append(append([]string(nil), path...), "value")
					rejected = append(rejected, u)
				}
				continue
			}
			rejected = append(rejected, UserError{Field: append(path, "value"), Message: err.Error(), Code: CodeInvalid})
			continue
		}
		j := m.entityIndexByID(w.OwnerID)
		if j < 0 {
			rejected = append(rejected, UserError{Field: append(path, "ownerId"), Message: "Owner does not exist", Code: CodeMissing})
			continue
		}
		if ue := m.checkFieldReferences([]model.FieldValue{{Key: w.Key, Type: w.Type, Value: w.Value}}); ue != nil {
			rejected = append(rejected, UserError{Field: append(path, "value"), Message: ue[0].Message, Code: CodeInvalid})
			continue
		}
		m.entities[j].Fields = mergeField(m.entities[j].Fields, model.FieldValue{
			Namespace: w.Namespace, Key: w.Key, Type: w.Type, Value: w.Value,
		})
	}
	return rejected, nil
}

func (m *Memory) definitionIndex(kind model.DefinitionKind, ownerType, naturalKey string) int {
	for i, d := range m.definitions {
		if d.Kind == kind && strings.EqualFold(d.OwnerType, ownerType) && d.NaturalKey() == naturalKey {
			return i
		}
	}
	return -1
}

func (m *Memory) pinnedCount(kind model.DefinitionKind, ownerType string) int {
	n := 0
	for _, d := range m.definitions {
		if d.Kind == kind && strings.EqualFold(d.OwnerType, ownerType) && d.Pinned {
			n++
		}
	}
	return n
}

func (m *Memory) entityIndexByID(id string) int {
	for i, e := range m.entities {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (m *Memory) entityIndexByKey(kind model.EntityKind, typ, naturalKey string) int {
	key := model.NormalizeKey(naturalKey)
	for i, e := range m.entities {
		if e.Kind != kind || (typ != "" && model.NormalizeType(e.Type) != model.NormalizeType(typ)) {
			continue
		}
		if e.NaturalKey() == key {
			return i
		}
	}
	return -1
}

func (m *Memory) exists(id string) bool {
	if m.entityIndexByID(id) >= 0 {
		return true
	}
	for _, d := range m.definitions {
		if d.ID == id {
			return true
		}
	}
	for _, f := range m.files {
		if f.ID == id {
			return true
		}
	}
	return false
}

// checkRuleReferences rejects validation rules that point at ids unknown to
// this deployment.
func (m *Memory) checkRuleReferences(rules []model.ValidationRule) UserErrors {
	for _, r := range rules {
		v, ok := model.ParseGIDValue(r.Value)
		if !ok {
			continue
		}
		for _, id := range v.IDs {
			if !m.exists(id) {
				return UserErrors{{Field: []string{"validations", r.Name}, Message: "Unknown reference " + id, Code: CodeInvalid}}
			}
		}
	}
	return nil
}

func (m *Memory) checkFieldReferences(fields []model.FieldValue) UserErrors {
	for _, f := range fields {
		if !f.Type.IsReference() || f.Value == "" {
			continue
		}
		ids, err := model.DecodeIDList(f.Value)
		if err != nil {
			return UserErrors{{Field: []string{"fields", f.Key}, Message: "Value is not a valid reference", Code: CodeInvalid}}
		}
		for _, id := range ids {
			if !m.exists(id) {
				return UserErrors{{Field: []string{"fields", f.Key}, Message: "Unknown reference " + id, Code: CodeInvalid}}
			}
		}
	}
	return nil
}

// checkEntity enforces the required fields of a metaobject's definition and
// reference validity.
func (m *Memory) checkEntity(e model.Entity) UserErrors {
	if e.Kind == model.EntityMetaobject {
		i := m.definitionIndex(model.KindTypeDefinition, "", model.NormalizeType(e.Type))
		if i < 0 {
			return UserErrors{{Field: []string{"type"}, Message: "No definition for type " + e.Type, Code: CodeMissing}}
		}
		for _, req := range m.definitions[i].RequiredFields() {
			f, ok := e.Field(req.Key)
			if !ok || (f.Value == "" && !req.Type.IsList()) {
				return UserErrors{{Field: []string{"fields", req.Key}, Message: req.Key + " can't be blank", Code: CodeBlank}}
			}
		}
	}
	return m.checkFieldReferences(e.Fields)
}

func mergeField(fields []model.FieldValue, f model.FieldValue) []model.FieldValue {
	out := fields[:0:0]
	replaced := false
	for _, existing := range fields {
		if existing.FieldKey() == f.FieldKey() {
			replaced = true
			if f.Value == "" {
				continue
			}
			out = append(out, f)
			continue
		}
		out = append(out, existing)
	}
	if !replaced && f.Value != "" {
		out = append(out, f)
	}
	return out
}

func cloneDefinition(d model.Definition) model.Definition {
	d.Fields = append([]model.FieldSpec(nil), d.Fields...)
	d.Validations = append([]model.ValidationRule(nil), d.Validations...)
	d.Capabilities = append(model.Capabilities(nil), d.Capabilities...)
	return d
}

func cloneEntity(e model.Entity) model.Entity {
	e.Fields = append([]model.FieldValue(nil), e.Fields...)
	e.Options = append([]model.SelectedOption(nil), e.Options...)
	return e
}

func definitionResource(k model.DefinitionKind) model.ResourceType {
	if k == model.KindTypeDefinition {
		return model.ResourceMetaobjectDefinition
	}
	return model.ResourceMetafieldDefinition
}

func entityResource(k model.EntityKind) model.ResourceType {
	if kind, ok := model.OwnerKindFor(k); ok {
		return kind.Resource
	}
	if k == "" {
		return "Unknown"
	}
	return model.ResourceType(strings.ToUpper(string(k[:1])) + string(k[1:]))
}
