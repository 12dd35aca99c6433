package orchestrator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/shopsync/internal/model"
)

// AllNamespaces is the namespace sentinel selecting every namespace found
// on the source.
const AllNamespaces = "all"

// AllKinds selects every known resource kind.
const AllKinds = "all"

var (
	// ErrUnknownKind is returned for a resource kind name that is not in
	// the owner kind table.
	ErrUnknownKind = errors.New("unknown resource kind")

	// ErrInvalidOptions is returned for option combinations that cannot run.
	ErrInvalidOptions = errors.New("invalid options")
)

// Options is the option surface of one invocation.
type Options struct {
	// Source and Target name the deployments for logs and the journal.
	Source string
	Target string

	// Kinds lists resource kind names; "all" selects every kind.
	Kinds []string

	// Definitions and Data select the passes to run.
	Definitions bool
	Data        bool

	// Key restricts sync passes to one definition natural key: a
	// metaobject type or a namespace.key.
	Key string

	// Handle restricts data passes and deletion to the entity with this
	// handle or SKU.
	Handle string

	// Namespace restricts field definitions and metafields: empty for no
	// filter, "all" for one pass per source namespace, or a comma list.
	Namespace string

	// Types restricts metaobject passes to these definition types.
	Types []string

	// ID restricts deletion to one entity.
	ID string

	Limit         int
	DryRun        bool
	ForceRecreate bool
	SkipUnchanged bool
}

// ResolveKinds maps kind names to owner kinds, in the order given. "all"
// expands to every kind in table order. Duplicates are dropped.
func ResolveKinds(names []string) ([]model.OwnerKind, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no resource kind selected", ErrInvalidOptions)
	}
	var (
		out  []model.OwnerKind
		seen = make(map[string]bool)
	)
	add := func(k model.OwnerKind) {
		if !seen[k.Name] {
			seen[k.Name] = true
			out = append(out, k)
		}
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if strings.EqualFold(name, AllKinds) {
			for _, k := range model.OwnerKinds() {
				add(k)
			}
			continue
		}
		k, ok := model.LookupOwnerKind(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownKind, name, strings.Join(model.Names(), ", "))
		}
		add(k)
	}
	return out, nil
}

// SplitList splits a comma list, trimming blanks and dropping empty and
// repeated items.
func SplitList(s string) []string {
	var (
		out  []string
		seen = make(map[string]bool)
	)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

func (o Options) validate(deleting bool) error {
	if o.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidOptions)
	}
	if deleting {
		if o.Key != "" {
			return fmt.Errorf("%w: key filter applies to sync only, select entities by handle", ErrInvalidOptions)
		}
		return nil
	}
	if !o.Definitions && !o.Data {
		return fmt.Errorf("%w: neither definitions nor data selected", ErrInvalidOptions)
	}
	if o.ID != "" {
		return fmt.Errorf("%w: id filter applies to delete only", ErrInvalidOptions)
	}
	return nil
}

// journalOptions renders the effective flags for the run journal. Unset
// flags are omitted.
func (o Options) journalOptions() map[string]string {
	out := make(map[string]string)
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	flag := func(k string, v bool) {
		if v {
			out[k] = "true"
		}
	}
	flag("definitions", o.Definitions)
	flag("data", o.Data)
	set("key", o.Key)
	set("handle", o.Handle)
	set("namespace", o.Namespace)
	set("types", strings.Join(o.Types, ","))
	set("id", o.ID)
	if o.Limit > 0 {
		out["limit"] = strconv.Itoa(o.Limit)
	}
	flag("force_recreate", o.ForceRecreate)
	flag("skip_unchanged", o.SkipUnchanged)
	return out
}
