// Copyright (c) 2025 Cloudflare, Inc.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package column

import (
	"slices"
	"testing"
)

func TestLimit(t *testing.T) {
	for _, tt := range []struct {
		rr     Candidates
		limit  int64
		expect Candidates
	}{
		{
			rr:     Candidates{{From: 2, Count: 6}},
			limit:  2,
			expect: Candidates{{From: 2, Count: 2}},
		},
		{
			rr:     Candidates{{From: 0, Count: 3}, {From: 10, Count: 10}},
			limit:  7,
			expect: Candidates{{From: 0, Count: 3}, {From: 10, Count: 4}},
		},
		{
			rr:     Candidates{{From: 0, Count: 3}},
			limit:  3,
			expect: Candidates{{From: 0, Count: 3}},
		},
		{
			rr:     Candidates{{From: 0, Count: 3}},
			limit:  0,
			expect: Candidates{},
		},
	} {
		t.Run("", func(t *testing.T) {
			if res := Limit(tt.limit, tt.rr); !slices.Equal(res, tt.expect) {
				t.Fatalf("Expected %v to match %v", res, tt.expect)
			}
		})
	}
}

func TestIntersect(t *testing.T) {
	for _, tt := range []struct{ lhs, rhs, expect Candidates }{
		{
			lhs:    Candidates{{From: 1, Count: 5}},
			rhs:    Candidates{{From: 3, Count: 5}},
			expect: Candidates{{From: 3, Count: 3}},
		},
		{
			lhs:    Candidates{{From: 0, Count: 2}},
			rhs:    Candidates{{From: 4, Count: 2}},
			expect: Candidates{},
		},
		{
			lhs:    Candidates{{From: 0, Count: 3}, {From: 6, Count: 3}},
			rhs:    Candidates{{From: 1, Count: 7}},
			expect: Candidates{{From: 1, Count: 2}, {From: 6, Count: 2}},
		},
		{
			lhs:    Candidates{{From: 0, Count: 2}, {From: 4, Count: 1}, {From: 9, Count: 20}},
			rhs:    Candidates{{From: 0, Count: 5}, {From: 12, Count: 3}},
			expect: Candidates{{From: 0, Count: 2}, {From: 4, Count: 1}, {From: 12, Count: 3}},
		},
		{
			lhs:    Candidates{},
			rhs:    Candidates{{From: 0, Count: 3}},
			expect: Candidates{},
		},
		{
			lhs:    Candidates{{From: 5, Count: 3}},
			rhs:    Candidates{{From: 5, Count: 1}, {From: 6, Count: 1}, {From: 7, Count: 1}},
			expect: Candidates{{From: 5, Count: 3}},
		},
	} {
		t.Run("", func(t *testing.T) {
			if res := Intersect(tt.lhs, tt.rhs); !slices.Equal(res, tt.expect) {
				t.Fatalf("Expected %v to match %v", res, tt.expect)
			}
		})
	}
}

func TestComplement(t *testing.T) {
	for _, tt := range []struct{ lhs, rhs, expect Candidates }{
		{
			lhs:    Candidates{{From: 3, Count: 2}},
			rhs:    Candidates{{From: 0, Count: 8}},
			expect: Candidates{{From: 0, Count: 3}, {From: 5, Count: 3}},
		},
		{
			lhs:    Candidates{{From: 0, Count: 4}},
			rhs:    Candidates{{From: 2, Count: 6}},
			expect: Candidates{{From: 4, Count: 4}},
		},
		{
			lhs:    Candidates{{From: 6, Count: 6}},
			rhs:    Candidates{{From: 2, Count: 6}},
			expect: Candidates{{From: 2, Count: 4}},
		},
		{
			lhs:    Candidates{{From: 20, Count: 2}},
			rhs:    Candidates{{From: 2, Count: 6}},
			expect: Candidates{{From: 2, Count: 6}},
		},
		{
			lhs:    Candidates{{From: 0, Count: 1}, {From: 3, Count: 1}, {From: 6, Count: 1}},
			rhs:    Candidates{{From: 0, Count: 7}},
			expect: Candidates{{From: 1, Count: 2}, {From: 4, Count: 2}},
		},
		{
			lhs:    Candidates{},
			rhs:    Candidates{{From: 4, Count: 4}},
			expect: Candidates{{From: 4, Count: 4}},
		},
		{
			lhs:    Candidates{{From: 4, Count: 4}},
			rhs:    Candidates{},
			expect: Candidates{},
		},
		{
			lhs:    Candidates{{From: 0, Count: 9}},
			rhs:    Candidates{{From: 0, Count: 9}},
			expect: Candidates{},
		},
	} {
		t.Run("", func(t *testing.T) {
			if res := Complement(tt.lhs, tt.rhs); !slices.Equal(res, tt.expect) {
				t.Fatalf("Expected %v to match %v", res, tt.expect)
			}
		})
	}
}

func TestSimplify(t *testing.T) {
	for _, tt := range []struct{ in, expect Candidates }{
		{
			in:     Candidates{{From: 6, Count: 2}, {From: 0, Count: 3}},
			expect: Candidates{{From: 0, Count: 3}, {From: 6, Count: 2}},
		},
		{
			in:     Candidates{{From: 0, Count: 3}, {From: 3, Count: 3}},
			expect: Candidates{{From: 0, Count: 6}},
		},
		{
			in:     Candidates{{From: 2, Count: 0}, {From: 5, Count: 2}},
			expect: Candidates{{From: 5, Count: 2}},
		},
		{
			in:     nil,
			expect: Candidates{},
		},
	} {
		t.Run("", func(t *testing.T) {
			res := Simplify(tt.in)
			if res == nil {
				t.Fatalf("Expected a non-nil result")
			}
			if !slices.Equal(res, tt.expect) {
				t.Fatalf("Expected %v to match %v", res, tt.expect)
			}
		})
	}
}

func TestFromPositions(t *testing.T) {
	for _, tt := range []struct {
		in     []int64
		expect Candidates
	}{
		{
			in:     []int64{3, 1, 2, 2, 7},
			expect: Candidates{{From: 1, Count: 3}, {From: 7, Count: 1}},
		},
		{
			in:     []int64{},
			expect: Candidates{},
		},
	} {
		t.Run("", func(t *testing.T) {
			res := FromPositions(tt.in)
			if !slices.Equal(res, tt.expect) {
				t.Fatalf("Expected %v to match %v", res, tt.expect)
			}
			if got := res.Positions(); int64(len(got)) != res.Len() {
				t.Fatalf("Expected %d positions, got %d", res.Len(), len(got))
			}
		})
	}
}
