package usecase

import (
	"sort"

	"exchange-import/internal/domain"
)

// Aggregator collects the clusters and problems of one parse into its result. Both
// lists are append-only until Result is called.
type Aggregator struct {
	runID       string
	source      string
	schema      string
	rowsRead    int
	rowsDecoded int
	clusters    []domain.TransactionCluster
	problems    []domain.RowProblem
}

// NewAggregator starts the result of one parse.
func NewAggregator(runID, source, schemaID string) *Aggregator {
	return &Aggregator{runID: runID, source: source, schema: schemaID}
}

// CountRead adds n to the rows read from the export, malformed ones included.
func (a *Aggregator) CountRead(n int) {
	a.rowsRead += n
}

// CountDecoded adds n to the rows that decoded without a problem.
func (a *Aggregator) CountDecoded(n int) {
	a.rowsDecoded += n
}

// AddCluster records a classified cluster.
func (a *Aggregator) AddCluster(c domain.TransactionCluster) {
	a.clusters = append(a.clusters, c)
}

// AddProblems records problems in any order; Result sorts them by line.
func (a *Aggregator) AddProblems(ps ...domain.RowProblem) {
	a.problems = append(a.problems, ps...)
}

// Result orders clusters by their earliest row and problems by row number, and
// computes the summary.
func (a *Aggregator) Result() *domain.ParseResult {
	clusters := append(make([]domain.TransactionCluster, 0, len(a.clusters)), a.clusters...)
	sort.SliceStable(clusters, func(i, j int) bool { return clusters[i].FirstLine() < clusters[j].FirstLine() })
	problems := append(make([]domain.RowProblem, 0, len(a.problems)), a.problems...)
	sort.SliceStable(problems, func(i, j int) bool { return problems[i].FirstLine() < problems[j].FirstLine() })

	summary := domain.Summary{
		RowsRead:       a.rowsRead,
		RowsDecoded:    a.rowsDecoded,
		Clusters:       len(clusters),
		Problems:       len(problems),
		ProblemsByKind: make(map[domain.ProblemKind]int),
	}
	for _, p := range problems {
		summary.ProblemsByKind[p.Kind]++
	}
	for _, c := range clusters {
		summary.IgnoredFeeTransactionCount += c.IgnoredFeeTransactionCount
		summary.FailedFeeTransactionCount += c.FailedFeeTransactionCount
	}

	return &domain.ParseResult{
		RunID:    a.runID,
		Source:   a.source,
		Schema:   a.schema,
		Summary:  summary,
		Clusters: clusters,
		Problems: problems,
	}
}
