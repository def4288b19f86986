// Package go2 contains general utility helpers that should've been in Go. Maybe they'll be in Go 2.0.
package go2

import (
	"hash/fnv"

	"golang.org/x/exp/constraints"
)

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func StringToIntHash(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32())
}

func Contains[T comparable](els []T, el T) bool {
	for _, el2 := range els {
		if el2 == el {
			return true
		}
	}
	return false
}

// UniqueBy keeps the first element for every key, preserving order.
func UniqueBy[T any, K comparable](els []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(els))
	out := make([]T, 0, len(els))
	for _, el := range els {
		k := key(el)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, el)
	}
	return out
}
