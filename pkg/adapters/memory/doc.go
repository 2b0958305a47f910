// Package memory provides the in-process collaborator implementations: a
// memoizing single-flight executor and a registry-backed template store.
// Both are safe for concurrent use.
package memory
