package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ProblemKind classifies a recoverable row or group failure.
type ProblemKind string

const (
	ProblemUnsupportedType   ProblemKind = "UNSUPPORTED_TYPE"
	ProblemUnsupportedStatus ProblemKind = "UNSUPPORTED_STATUS"
	ProblemUnsupportedPair   ProblemKind = "UNSUPPORTED_PAIR"
	ProblemCoercionFailure   ProblemKind = "COERCION_FAILURE"
	ProblemIgnoredByPolicy   ProblemKind = "IGNORED_BY_POLICY"
	ProblemGroupIncomplete   ProblemKind = "GROUP_INCOMPLETE"
	ProblemUnclassifiable    ProblemKind = "UNCLASSIFIABLE"
	ProblemPriceMismatch     ProblemKind = "PRICE_MISMATCH"
)

// severity orders kinds when one row has several failures; higher wins.
var severity = map[ProblemKind]int{
	ProblemIgnoredByPolicy:   3,
	ProblemUnsupportedType:   2,
	ProblemUnsupportedStatus: 2,
	ProblemUnsupportedPair:   2,
	ProblemCoercionFailure:   1,
}

// MoreDiagnostic reports whether a should be reported in preference to b.
func (k ProblemKind) MoreDiagnostic(than ProblemKind) bool {
	return severity[k] > severity[than]
}

// RowProblem is a recoverable failure of one row, or of a group of rows.
type RowProblem struct {
	Kind   ProblemKind `json:"kind"`
	Source string      `json:"source,omitempty"`
	Lines  []int       `json:"lines"`
	Raw    []string    `json:"raw"`
	Reason string      `json:"reason"`
	// Message is stable and meant for display to the person reviewing the import.
	Message string `json:"message"`
}

// NewRowProblem builds a problem referencing every given row.
func NewRowProblem(kind ProblemKind, reason string, rows ...RawRow) RowProblem {
	p := RowProblem{Kind: kind, Reason: reason}
	sorted := append([]RawRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Line < sorted[j].Line })
	for _, r := range sorted {
		if p.Source == "" {
			p.Source = r.Source
		}
		p.Lines = append(p.Lines, r.Line)
		p.Raw = append(p.Raw, r.Text)
	}
	p.Message = formatProblem(kind, reason, p.Lines, p.Raw)
	return p
}

func formatProblem(kind ProblemKind, reason string, lines []int, raw []string) string {
	nums := make([]string, len(lines))
	for i, l := range lines {
		nums[i] = strconv.Itoa(l)
	}
	label := "line"
	if len(lines) > 1 {
		label = "lines"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s (%s)", label, strings.Join(nums, ", "), reason, kind)
	for _, r := range raw {
		fmt.Fprintf(&b, " | %s", r)
	}
	return b.String()
}

// FirstLine returns the smallest line the problem references.
func (p RowProblem) FirstLine() int {
	if len(p.Lines) == 0 {
		return 0
	}
	return p.Lines[0]
}

func (p RowProblem) Error() string {
	return p.Message
}

// Summary provides high-level statistics of one parse.
type Summary struct {
	RowsRead                   int                 `json:"rows_read"`
	RowsDecoded                int                 `json:"rows_decoded"`
	Clusters                   int                 `json:"clusters"`
	Problems                   int                 `json:"problems"`
	ProblemsByKind             map[ProblemKind]int `json:"problems_by_kind"`
	IgnoredFeeTransactionCount int                 `json:"ignored_fee_transaction_count"`
	FailedFeeTransactionCount  int                 `json:"failed_fee_transaction_count"`
}

// ParseResult is the top-level structure returned for one file.
type ParseResult struct {
	RunID    string               `json:"run_id"`
	Source   string               `json:"source"`
	Schema   string               `json:"schema"`
	Summary  Summary              `json:"summary"`
	Clusters []TransactionCluster `json:"clusters"`
	Problems []RowProblem         `json:"problems"`
}

// FileDispatchError reports a header no registered schema accepts. It aborts the file.
type FileDispatchError struct {
	Source string
	Header string
}

func (e *FileDispatchError) Error() string {
	return fmt.Sprintf("no schema matches header of %s: %q", e.Source, e.Header)
}
