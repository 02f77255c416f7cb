// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
)

const singleLoop = `public class Sum {
    public static void main(String[] args) {
        int s = 0;
        for (int i = 0; i < 10; i++) {
            s += i;
        }
        System.out.println(s);
    }
}`

const nestedLoop = `public class Pairs {
    public static void main(String[] args) {
        int s = 0;
        for (int i = 0; i < 10; i++) {
            for (int j = 0; j < 10; j++) {
                s += i * j;
            }
        }
        System.out.println(s);
    }
}`

const linearSearch = `import java.util.Scanner;

public class LinearSearch {
    public static void main(String[] args) {
        Scanner sc = new Scanner(System.in);
        int n = sc.nextInt();
        int[] arr = new int[n];
        for (int i = 0; i < n; i++) {
            arr[i] = sc.nextInt();
        }
        int target = 42;
        int found = -1;
        for (int i = 0; i < n; i++) {
            if (arr[i] == target) {
                found = i;
                break;
            }
        }
        System.out.println(found);
    }
}`

// =============================================================================
// TIME
// =============================================================================

func TestClassifyTime(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
		rule Rule
	}{
		{"single loop", singleLoop, domain.LabelLinear, RuleIterative},
		{"nested loop", nestedLoop, domain.LabelQuadratic, RuleIterative},
		{"linear search", linearSearch, domain.LabelLinear, RuleIterative},
		{
			"triple nesting",
			"for (;;) { for (;;) { for (;;) { x++; } } }",
			"O(n^3)", RuleIterative,
		},
		{
			"while counts as a loop",
			"while (a) { while (b) { x++; } }",
			domain.LabelQuadratic, RuleIterative,
		},
		{
			"loop keyword inside identifiers is ignored",
			"int format = 1; int forward = 2; for (int i = 0; i < n; i++) { x += format; }",
			domain.LabelLinear, RuleIterative,
		},
		{"merge sort vocabulary", "static void mergeSort(int[] a) {}", domain.LabelLinearithm, RuleSortFamily},
		{"heapify", "void heapify(int[] a, int i) {}", domain.LabelLinearithm, RuleSortFamily},
		{"priority queue", "PriorityQueue<Integer> pq = new PriorityQueue<>();", domain.LabelLinearithm, RuleSortFamily},
		{"quick sort", "void quickSort(int[] a) {}", domain.LabelLinearithm, RuleSortFamily},
		{"BST vocabulary", "class BST { Node root; }", domain.LabelLog, RuleLogarithmic},
		{
			"midpoint without loop",
			"static int find(int[] a, int lo, int hi) { int mid = lo + (hi - lo) / 2; return find(a, lo, mid); }",
			domain.LabelLog, RuleLogarithmic,
		},
		{
			"sort then merge on separate lines",
			"static void sortHalves(int[] a) {\n    int n = a.length;\n}\nstatic void combine() { merge(); }",
			domain.LabelLinearithm, RuleSortFamily,
		},
		{
			"partition then pivot on separate lines",
			"int partition(int[] a, int lo, int hi) {\n    int p = a[hi];\n    return p;\n}\nint choosePivot() { return 0; }",
			domain.LabelLinearithm, RuleSortFamily,
		},
		{
			"binary search then tree on separate lines",
			"boolean binarySearch(Node n, int k) {\n    return false;\n}\nclass Tree {}",
			domain.LabelLog, RuleLogarithmic,
		},
		{
			"adjacency list on separate lines",
			"int[] adj = new int[4];\nint[] list = new int[4];",
			domain.LabelGraphDense, RuleGraph,
		},
		{"bfs", "void bfs(Graph g) {}", domain.LabelGraphLinear, RuleGraph},
		{"dfs", "void DFS(int vertex) {}", domain.LabelGraphLinear, RuleGraph},
		{"dijkstra", "int[] dijkstra(int[][] graph, int src) { return null; }", domain.LabelGraphHeap, RuleGraph},
		{"dense graph", "int[][] graph = new int[5][5];", domain.LabelGraphDense, RuleGraph},
		{
			"n queens",
			`boolean solve(int[][] board, int col) {
    for (int i = 0; i < n; i++) {
        board[i][col] = 1;
        for (int k = 0; k < n; k++) { x++; }
        if (done) { return solve(board, col) || retry; }
    }
    return false;
}`,
			domain.LabelFactorial, RuleBacktracking,
		},
		{
			"subset backtracking",
			"boolean f(int i) { for (int c = 0; c < 2; c++) { if (ok) { return f(i) || g; } } return false; }",
			"O(2^N)", RuleBacktracking,
		},
		{"dp table", "int x = dp[i][j];", "O(N^1)", RuleDynamic},
		{
			"fibonacci",
			"static int fib(int n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); }",
			domain.LabelExponential, RuleRecursive,
		},
		{
			"recursion without unit step",
			"static void shrink(int n) { if (n > 0) { shrink(n / 3); } }",
			domain.LabelLinear, RuleRecursive,
		},
		{
			"divide without merge",
			"static void split(int[] a, int lo, int hi) { if (hi - lo < 2) return; for (int i = lo; i < hi; i++) { a[i]++; } split(a, lo, (lo + hi) >> 1); }",
			domain.LabelLog, RuleDivide,
		},
		{
			"divide with partition",
			"static void split(int[] a, int lo, int hi) { for (int i = lo; i < hi; i++) { a[i]++; } int p = partition(a, lo, hi); split(a, lo, p); }",
			domain.LabelLinearithm, RuleDivide,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTime(tt.code))
			assert.Equal(t, tt.rule, Classify(tt.code).Rule)
		})
	}
}

// =============================================================================
// SPACE
// =============================================================================

func TestClassifySpace(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"linear search has no auxiliary structures", linearSearch, domain.LabelConstant},
		{"tree map", "TreeMap<Integer, Integer> m = new TreeMap<>();", domain.LabelLinear},
		{"heap", "void heapSort(int[] a) { heapify(a); }", domain.LabelLinear},
		{"matrix", "int[][] grid = new int[n][n];", domain.LabelQuadratic},
		{"graph", "int edgeCount = 0;", domain.LabelGraphLinear},
		{"adjacency list on separate lines", "int[] adj = new int[4];\nint[] list = new int[4];", domain.LabelGraphLinear},
		{"arrays sort default", "Arrays.sort(a);", domain.LabelLog},
		{"arrays sort with merge sort", "Arrays.sort(a); mergeSort(b);", domain.LabelLinear},
		{"arrays sort with heap sort", "Arrays.sort(a); HeapSort.run(b);", domain.LabelConstant},
		{"stack", "Stack<Integer> s = new Stack<>();", domain.LabelLinear},
		{"push call", "s.push(1);", domain.LabelLinear},
		{"two containers", "List<Integer> a = new ArrayList<>(); Map<Integer, Integer> m = new HashMap<>();", domain.LabelLinear},
		{"one container", "List<Integer> a = new ArrayList<>();", domain.LabelConstant},
		{"empty", "", domain.LabelConstant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySpace(tt.code))
		})
	}
}

// =============================================================================
// ROBUSTNESS
// =============================================================================

func TestClassify_NeverPanics(t *testing.T) {
	inputs := []string{"", "{", "}}}}", "for for for", "f(", "static int f(int n) { return f(", "((((", "\x00\xff"}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			c := Classify(in)
			assert.NotEmpty(t, c.Time)
			assert.NotEmpty(t, c.Space)
		}, "input %q", in)
	}
}

func TestMaxLoopDepth_FloorsAtZero(t *testing.T) {
	assert.Equal(t, 1, maxLoopDepth("} } } for (;;) { }"))
	assert.Equal(t, 0, maxLoopDepth("}}}"))
}

func TestSelfRecursiveCalls(t *testing.T) {
	code := "static int f(int n) { return g(n) + f(n - 1); } static int g(int m) { return f(m); }"
	assert.Equal(t, []string{"n - 1"}, selfRecursiveCalls(code))

	anon := "Runnable r = new Runnable() { public void run() { } };"
	assert.Empty(t, selfRecursiveCalls(anon))
}
