package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"exchange-import/internal/classify"
	"exchange-import/internal/cluster"
	"exchange-import/internal/coerce"
	"exchange-import/internal/currency"
	"exchange-import/internal/datetime"
	"exchange-import/internal/decoder"
	"exchange-import/internal/domain"
	"exchange-import/internal/logger"
	"exchange-import/internal/schema"
)

// ImportUseCase orchestrates the parse of exchange exports.
type ImportUseCase struct {
	repo        SourceRepository
	dispatcher  *schema.Dispatcher
	currencies  currency.Resolver
	location    *time.Location
	concurrency int
	log         *logrus.Entry
}

// Option customizes an ImportUseCase.
type Option func(*ImportUseCase)

// WithLocation sets the zone applied to timestamps without one.
func WithLocation(loc *time.Location) Option {
	return func(uc *ImportUseCase) {
		if loc != nil {
			uc.location = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(uc *ImportUseCase) {
		if log != nil {
			uc.log = log
		}
	}
}

// WithConcurrency bounds how many files ImportAll parses at once.
func WithConcurrency(n int) Option {
	return func(uc *ImportUseCase) {
		if n > 0 {
			uc.concurrency = n
		}
	}
}

// NewImportUseCase creates a new instance of the usecase. The registry and the currency
// resolver are shared read-only by every parse.
func NewImportUseCase(repo SourceRepository, registry *schema.Registry, currencies currency.Resolver, opts ...Option) *ImportUseCase {
	uc := &ImportUseCase{
		repo:        repo,
		dispatcher:  schema.NewDispatcher(registry),
		currencies:  currencies,
		location:    time.UTC,
		concurrency: 4,
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Import opens the export at path and parses it.
func (uc *ImportUseCase) Import(ctx context.Context, path string) (*domain.ParseResult, error) {
	src, err := uc.repo.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("could not open export: %w", err)
	}
	return uc.Parse(ctx, src)
}

// FileResult is the outcome of one export of a batch. Exactly one of Result and Err
// is set.
type FileResult struct {
	Path   string
	Result *domain.ParseResult
	Err    error
}

// ImportAll parses several exports concurrently. Each parse is independent: a file that
// cannot be opened or dispatched carries its error in its own FileResult and the rest
// of the batch still completes. Only cancellation of ctx fails the whole call.
func (uc *ImportUseCase) ImportAll(ctx context.Context, paths []string) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := uc.Import(ctx, path)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				uc.log.WithError(err).WithField("path", path).Error("export skipped")
				results[i] = FileResult{Path: path, Err: fmt.Errorf("%s: %w", path, err)}
				return nil
			}
			results[i] = FileResult{Path: path, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Parse runs one export through dispatch, decoding, correlation and classification.
// Only a header no schema accepts aborts the parse; every row-level failure ends up
// in the result's problem list.
func (uc *ImportUseCase) Parse(ctx context.Context, src Source) (*domain.ParseResult, error) {
	runID := uuid.NewString()
	log := uc.log.WithFields(logrus.Fields{"run_id": runID, "source": src.Name()})

	// Step 1: Schema Dispatch
	binding, err := uc.dispatch(src)
	if err != nil {
		log.WithError(err).Warn("no schema for export")
		return nil, err
	}
	s := binding.Schema
	log = log.WithField("schema", s.ID)

	// Step 2: Tokenizing
	rows, problems, err := src.Rows(s.Delimiter)
	if err != nil {
		return nil, fmt.Errorf("could not read rows of %s: %w", src.Name(), err)
	}
	agg := NewAggregator(runID, src.Name(), s.ID)
	agg.CountRead(len(rows) + len(problems))
	agg.AddProblems(problems...)

	// Step 3: Row Decoding
	coercer := coerce.NewCoercer(uc.currencies, datetime.NewResolver(uc.location))
	dec := decoder.New(binding, coercer, log.WithField("component", "decoder"))
	decoded := make([]domain.DecodedRow, 0, len(rows))
	for _, row := range rows {
		d, problem := dec.Decode(row)
		if problem != nil {
			agg.AddProblems(*problem)
			continue
		}
		decoded = append(decoded, d)
	}
	agg.CountDecoded(len(decoded))

	// Step 4: Correlation
	groups, incomplete := cluster.NewEngine(s, log.WithField("component", "cluster")).Group(decoded)
	agg.AddProblems(incomplete...)

	// Step 5: Classification
	classifier := classify.New(s, log.WithField("component", "classify"))
	for _, g := range groups {
		c, ps := classifier.Classify(g)
		agg.AddProblems(ps...)
		if c != nil {
			agg.AddCluster(*c)
		}
	}

	result := agg.Result()
	log.WithFields(logrus.Fields{
		"rows":     result.Summary.RowsRead,
		"decoded":  result.Summary.RowsDecoded,
		"clusters": result.Summary.Clusters,
		"problems": result.Summary.Problems,
	}).Info("export parsed")
	return result, nil
}

func (uc *ImportUseCase) dispatch(src Source) (*schema.Binding, error) {
	var (
		binding *schema.Binding
		err     error
	)
	if cells := src.HeaderCells(); cells != nil {
		binding, err = uc.dispatcher.SelectColumns(cells)
	} else {
		binding, err = uc.dispatcher.Select(src.HeaderLine())
	}
	var de *domain.FileDispatchError
	if errors.As(err, &de) {
		de.Source = src.Name()
	}
	return binding, err
}
