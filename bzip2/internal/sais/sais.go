// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package sais

type symbol interface {
	~byte | ~int
}

// computeSA sorts the suffixes of T, whose symbols are in 0..k-1, into SA.
// The string is treated as if terminated by a unique sentinel smaller than
// every symbol, so a suffix that is a prefix of another sorts first.
func computeSA[S symbol](T []S, SA []int, k int) {
	n := len(T)
	switch n {
	case 0:
		return
	case 1:
		SA[0] = 0
		return
	}

	// Classify every suffix as S-type (true) or L-type (false).
	// The last suffix is L-type since the sentinel follows it.
	types := make([]bool, n)
	for i := n - 2; i >= 0; i-- {
		types[i] = T[i] < T[i+1] || (T[i] == T[i+1] && types[i+1])
	}
	isLMS := func(i int) bool {
		return i > 0 && i < n && types[i] && !types[i-1]
	}

	counts := make([]int, k)
	for _, c := range T {
		counts[c]++
	}
	bkt := make([]int, k)
	getBuckets := func(end bool) {
		var sum int
		for c, cnt := range counts {
			sum += cnt
			if end {
				bkt[c] = sum
			} else {
				bkt[c] = sum - cnt
			}
		}
	}

	// induce fills in all L-type and then all S-type suffixes using the
	// LMS suffixes already placed at the ends of their buckets.
	induce := func() {
		getBuckets(false)
		j := n - 1 // Induced by the sentinel itself
		SA[bkt[T[j]]] = j
		bkt[T[j]]++
		for i := 0; i < n; i++ {
			if j = SA[i] - 1; j >= 0 && !types[j] {
				SA[bkt[T[j]]] = j
				bkt[T[j]]++
			}
		}
		getBuckets(true)
		for i := n - 1; i >= 0; i-- {
			if j = SA[i] - 1; j >= 0 && types[j] {
				bkt[T[j]]--
				SA[bkt[T[j]]] = j
			}
		}
	}

	// Stage 1: sort the LMS substrings.
	for i := range SA {
		SA[i] = -1
	}
	getBuckets(true)
	var lms []int
	for i := 1; i < n; i++ {
		if isLMS(i) {
			lms = append(lms, i)
			bkt[T[i]]--
			SA[bkt[T[i]]] = i
		}
	}
	induce()

	// Stage 2: name the LMS substrings in sorted order.
	names := make([]int, n)
	for i := range names {
		names[i] = -1
	}
	var numNames, prev int = 0, -1
	for _, p := range SA {
		if !isLMS(p) {
			continue
		}
		if prev < 0 || !equalLMS(T, types, isLMS, prev, p) {
			numNames++
		}
		names[p] = numNames - 1
		prev = p
	}

	// Stage 3: sort the LMS suffixes, recursing when names are not unique.
	sorted := make([]int, len(lms))
	if numNames < len(lms) {
		T1 := make([]int, len(lms))
		for i, p := range lms {
			T1[i] = names[p]
		}
		SA1 := make([]int, len(lms))
		computeSA(T1, SA1, numNames)
		for i, j := range SA1 {
			sorted[i] = lms[j]
		}
	} else {
		for _, p := range lms {
			sorted[names[p]] = p
		}
	}

	// Stage 4: place the sorted LMS suffixes and induce the rest.
	for i := range SA {
		SA[i] = -1
	}
	getBuckets(true)
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		bkt[T[p]]--
		SA[bkt[T[p]]] = p
	}
	induce()
}

// equalLMS reports whether the LMS substrings starting at a and b are equal.
// A substring that runs into the sentinel equals no other.
func equalLMS[S symbol](T []S, types []bool, isLMS func(int) bool, a, b int) bool {
	n := len(T)
	for d := 0; ; d++ {
		if a+d == n || b+d == n {
			return false
		}
		if T[a+d] != T[b+d] || types[a+d] != types[b+d] {
			return false
		}
		if d > 0 && isLMS(a+d) {
			return isLMS(b + d)
		}
	}
}
