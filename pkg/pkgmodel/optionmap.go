package pkgmodel

import (
	"crypto/sha1"
	"encoding/base32"
	"sort"
	"strings"
)

// OptionMap is an insertion-ordered, key-sorted-on-digest mapping from
// OptName to its resolved string value.
type OptionMap struct {
	keys   []OptName
	values map[OptName]string
}

// NewOptionMap returns an empty OptionMap.
func NewOptionMap() *OptionMap {
	return &OptionMap{values: make(map[OptName]string)}
}

// Set inserts or updates name=value, preserving first-insertion order.
func (m *OptionMap) Set(name OptName, value string) {
	if m.values == nil {
		m.values = make(map[OptName]string)
	}
	if _, exists := m.values[name]; !exists {
		m.keys = append(m.keys, name)
	}
	m.values[name] = value
}

// Get returns the value for name, if present.
func (m *OptionMap) Get(name OptName) (string, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Keys returns the option names in insertion order.
func (m *OptionMap) Keys() []OptName {
	out := make([]OptName, len(m.keys))
	copy(out, m.keys)
	return out
}

var digestEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Digest computes the SHA-1 of "name=value\0" for each entry taken in
// sorted-by-name order, truncated to 8 base32 characters (
// "Option Map").
func (m *OptionMap) Digest() string {
	keys := make([]OptName, len(m.keys))
	copy(keys, m.keys)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	h := sha1.New()
	for _, k := range keys {
		h.Write([]byte(string(k) + "=" + m.values[k] + "\x00"))
	}
	sum := digestEncoding.EncodeToString(h.Sum(nil))
	if len(sum) < 8 {
		return sum
	}
	return sum[:8]
}

// PackageScoped returns opt with its package-scoping prefix stripped
// and whether it was scoped to pkg specifically: "pkg.opt" is
// package-scoped, "opt" is global.
func PackageScoped(name OptName, pkg PkgName) (opt OptName, matchesPkg bool) {
	nsPkg, bare, namespaced := name.Namespace()
	if !namespaced {
		return name, false
	}
	if strings.EqualFold(nsPkg, string(pkg)) {
		return OptName(bare), true
	}
	return name, false
}

// PackageOptions computes package_options(p): global options plus
// every entry namespaced to p with the namespace stripped (
// "package_options(p)").
func PackageOptions(all *OptionMap, pkg PkgName) *OptionMap {
	out := NewOptionMap()
	for _, k := range all.Keys() {
		_, bare, namespaced := k.Namespace()
		if !namespaced {
			v, _ := all.Get(k)
			out.Set(k, v)
			continue
		}
		if scoped, matches := PackageScoped(k, pkg); matches {
			v, _ := all.Get(k)
			out.Set(scoped, v)
		}
	}
	return out
}
