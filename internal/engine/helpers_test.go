package engine

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

var fixedNow = time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)

type memoryRecorder struct {
	mu      sync.Mutex
	records []MutationRecord
}

func (r *memoryRecorder) RecordMutation(_ context.Context, m MutationRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, m)
}

func testOptions() PassOptions {
	return PassOptions{Now: func() time.Time { return fixedNow }}
}

func fieldDefinition(ns, key string, t model.ValueType) model.Definition {
	return model.Definition{
		Kind: model.KindFieldDefinition, OwnerType: "PRODUCT",
		Namespace: ns, Key: key, Name: key, ValueType: t,
	}
}

func productsKind() model.OwnerKind {
	k, _ := model.LookupOwnerKind("products")
	return k
}

func metaobjectsKind() model.OwnerKind {
	k, _ := model.LookupOwnerKind("metaobjects")
	return k
}

func variantsKind() model.OwnerKind {
	k, _ := model.LookupOwnerKind("variants")
	return k
}

func writesOf(m *remote.Memory, op remote.Op) int {
	return len(m.CallsOf(op))
}
