// Package runtime implements the recursive context resolution engine: the
// direct / reduce / composite branch logic that maps a plugin's native
// granularity onto whatever region the caller asked for.
package runtime
