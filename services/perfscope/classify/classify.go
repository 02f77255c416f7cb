// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classify assigns Big-O labels to source text without running it.
//
// The classifier is lexical and best-effort. Rules are evaluated in a fixed
// order and the first match wins; the order encodes precedence, not
// confidence. Reordering rules changes results and is a behavior change.
//
// Thread Safety: All functions are pure and safe for concurrent use.
package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
)

// =============================================================================
// RULES
// =============================================================================

// Rule names the decision that produced a label.
type Rule string

const (
	RuleSortFamily   Rule = "sort-family"
	RuleLogarithmic  Rule = "logarithmic"
	RuleGraph        Rule = "graph"
	RuleBacktracking Rule = "backtracking"
	RuleDynamic      Rule = "dynamic-programming"
	RuleDivide       Rule = "divide-and-conquer"
	RuleRecursive    Rule = "recursive"
	RuleIterative    Rule = "iterative"
)

var (
	// Time rules. The sort, tree and graph vocabularies match across
	// lines; (?s) covers every alternative.
	mergeSortRe  = regexp.MustCompile(`(?is)merge.*sort|sort.*merge`)
	heapRe       = regexp.MustCompile(`(?i)heap\s*(?:sort|ify)|priority.*queue`)
	quickSortRe  = regexp.MustCompile(`(?is)quick.*sort|partition.*pivot`)
	binaryTreeRe = regexp.MustCompile(`(?is)tree\.*(?:insert|search|delete)|BST|binary.*search.*tree`)
	midpointRe   = regexp.MustCompile(`mid\s*=|middle\s*=|/\s*2`)
	loopRe       = regexp.MustCompile(`\bfor\s*\(|\bwhile\s*\(`)
	graphRe      = regexp.MustCompile(`(?is)graph|adj.*list|edge|vertex`)
	backtrackRe  = regexp.MustCompile(`(?s)\bfor\b.*\{.*\breturn\b.*\|\|.*\}`)
	dpTableRe    = regexp.MustCompile(`dp\[.*\]\[.*\]|memo\[.*\]\[.*\]`)
	divideRe     = regexp.MustCompile(`divide|split|partition|mid`)
	bracketRe    = regexp.MustCompile(`\[.*?\]`)
	utilityRe    = regexp.MustCompile(`\[\]\s*=\s*new`)
	loopTokenRe  = regexp.MustCompile(`\b(?:for|while)\b|\}`)

	// Space rules. These are case-sensitive.
	treeRe       = regexp.MustCompile(`TreeNode|TreeMap|TreeSet`)
	bstRe        = regexp.MustCompile(`BinarySearchTree|BST`)
	heapSpaceRe  = regexp.MustCompile(`heap\s*(?:sort|ify)|priority.*queue`)
	matrixRe     = regexp.MustCompile(`\[\]\[\]`)
	graphSpaceRe = regexp.MustCompile(`(?s)graph|adj.*list|edge|vertex`)
	arraysSortRe = regexp.MustCompile(`Arrays\.sort\s*\(`)
	queueRe      = regexp.MustCompile(`Queue|PriorityQueue|Deque|ArrayDeque`)
	stackRe      = regexp.MustCompile(`Stack|push\s*\(|pop\s*\(`)
	containerRe  = regexp.MustCompile(`new\s+[A-Za-z]+\s*\[|ArrayList|LinkedList|HashMap|HashSet|Queue|Stack|TreeMap|TreeSet|PriorityQueue`)
)

// Classification is the full outcome of the static classifier.
type Classification struct {
	Time  string `json:"time_complexity"`
	Space string `json:"space_complexity"`

	// Rule is the time rule that fired.
	Rule Rule `json:"rule"`
}

// Classify runs both classifiers and reports which time rule fired.
func Classify(code string) Classification {
	label, rule := classifyTime(code)
	return Classification{
		Time:  label,
		Space: ClassifySpace(code),
		Rule:  rule,
	}
}

// ClassifyTime returns the time-complexity label for code.
//
// Description:
//
//	Rules, first match wins:
//	  1. merge, heap or quick sort vocabulary: O(n log n)
//	  2. binary-tree vocabulary, or a midpoint marker with no loop: O(log n)
//	  3. graph vocabulary: graph sub-classifier
//	  4. structural: backtracking, DP table, divide and conquer, recursion,
//	     then loop nesting depth
//
// Outputs:
//
//	string - A label. Never empty; O(n) when nothing matches.
func ClassifyTime(code string) string {
	label, _ := classifyTime(code)
	return label
}

func classifyTime(code string) (string, Rule) {
	if mergeSortRe.MatchString(code) || heapRe.MatchString(code) || quickSortRe.MatchString(code) {
		return domain.LabelLinearithm, RuleSortFamily
	}

	if binaryTreeRe.MatchString(code) || (midpointRe.MatchString(code) && !loopRe.MatchString(code)) {
		return domain.LabelLog, RuleLogarithmic
	}

	if graphRe.MatchString(code) {
		return classifyGraph(code), RuleGraph
	}

	switch {
	case backtrackRe.MatchString(code):
		return classifyBacktracking(code), RuleBacktracking

	case dpTableRe.MatchString(code):
		return "O(N^" + strconv.Itoa(countDPDimensions(code)) + ")", RuleDynamic
	}

	calls := selfRecursiveCalls(code)
	if len(calls) > 0 {
		if divideRe.MatchString(code) {
			if strings.Contains(code, "merge") || strings.Contains(code, "partition") {
				return domain.LabelLinearithm, RuleDivide
			}
			return domain.LabelLog, RuleDivide
		}
		for _, args := range calls {
			if stepArgRe.MatchString(args) {
				return domain.LabelExponential, RuleRecursive
			}
		}
		return domain.LabelLinear, RuleRecursive
	}

	if depth := maxLoopDepth(code); depth > 1 {
		return "O(n^" + strconv.Itoa(depth) + ")", RuleIterative
	}
	return domain.LabelLinear, RuleIterative
}

func classifyGraph(code string) string {
	switch {
	case strings.Contains(code, "bfs") || strings.Contains(code, "BFS"):
		return domain.LabelGraphLinear
	case strings.Contains(code, "dfs") || strings.Contains(code, "DFS"):
		return domain.LabelGraphLinear
	case strings.Contains(code, "dijkstra") || strings.Contains(code, "Dijkstra"):
		return domain.LabelGraphHeap
	default:
		return domain.LabelGraphDense
	}
}

func classifyBacktracking(code string) string {
	k := countDecisionPoints(code)
	if strings.Contains(code, "board[") && k > 1 {
		return domain.LabelFactorial
	}
	return "O(" + strconv.Itoa(max(k, 2)) + "^N)"
}

// countDecisionPoints counts loops that are not output or initialization
// loops. A loop is a utility loop when the code from the loop onwards
// prints, fills an array, or allocates one.
func countDecisionPoints(code string) int {
	count := 0
	for _, loc := range loopRe.FindAllStringIndex(code, -1) {
		rest := code[loc[0]:]
		if strings.Contains(rest, "System.out.print") ||
			strings.Contains(rest, "Arrays.fill") ||
			utilityRe.MatchString(rest) {
			continue
		}
		count++
	}
	return count
}

// countDPDimensions is half the number of bracket pairs, at least one.
func countDPDimensions(code string) int {
	return max(1, len(bracketRe.FindAllStringIndex(code, -1))/2)
}

// maxLoopDepth runs a depth counter over loop keywords and closing braces.
// Each for/while opens a level and each '}' closes one, floored at zero.
func maxLoopDepth(code string) int {
	depth, maxDepth := 0, 0
	for _, tok := range loopTokenRe.FindAllString(code, -1) {
		if tok == "}" {
			depth = max(0, depth-1)
			continue
		}
		depth++
		maxDepth = max(maxDepth, depth)
	}
	return maxDepth
}

// ClassifySpace returns the space-complexity label for code.
//
// Outputs:
//
//	string - A label. Never empty; O(1) when nothing matches.
func ClassifySpace(code string) string {
	switch {
	case treeRe.MatchString(code) || bstRe.MatchString(code):
		return domain.LabelLinear
	case heapSpaceRe.MatchString(code):
		return domain.LabelLinear
	case matrixRe.MatchString(code):
		return domain.LabelQuadratic
	case graphSpaceRe.MatchString(code):
		return domain.LabelGraphLinear
	case arraysSortRe.MatchString(code):
		switch {
		case strings.Contains(code, "mergeSort") || strings.Contains(code, "MergeSort"):
			return domain.LabelLinear
		case strings.Contains(code, "quickSort") || strings.Contains(code, "QuickSort"):
			return domain.LabelLog
		case strings.Contains(code, "heapSort") || strings.Contains(code, "HeapSort"):
			return domain.LabelConstant
		}
		return domain.LabelLog
	case queueRe.MatchString(code) || stackRe.MatchString(code):
		return domain.LabelLinear
	case len(containerRe.FindAllStringIndex(code, -1)) > 1:
		return domain.LabelLinear
	}
	return domain.LabelConstant
}
