// Package model provides the resource types shared by every shopsync layer.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - Opaque ids are deployment-scoped and never compared across deployments
//   - Natural keys (type, namespace.key, handle, SKU) are the only identity
//     shared between a source and a target deployment
//   - Owner kinds are data (see owner.go), never one type per kind
package model
