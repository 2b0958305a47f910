// Package domain defines the core value types shared across the engine and
// its adapters: the Result variant (opaque value, image, composite), the Image
// capability set with its dense Grid implementation, plugin descriptors, and
// the CacheInfo provenance tree.
package domain
