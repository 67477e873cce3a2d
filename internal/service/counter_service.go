package service

import (
	"context"
	"sort"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/model"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/normalize"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/repository"

	"github.com/rs/zerolog/log"
)

// CounterSeedSource tags counters written from a spreadsheet.
const CounterSeedSource = "seed-xlsx"

// maxSeedErrors caps the per-row errors returned by a seed.
const maxSeedErrors = 50

// CounterService keeps the per provider/type SKU sequences in step with the
// codes already printed on garments.
type CounterService interface {
	SeedFromRows(ctx context.Context, rows [][]string, dryRun bool) (*dto.CounterSeedResult, error)
	List(ctx context.Context) ([]dto.SKUCounter, error)
}

type counterService struct {
	repo repository.CounterRepository
}

func NewCounterService(repo repository.CounterRepository) CounterService {
	return &counterService{repo: repo}
}

// codeColumn picks the column holding the most parseable codes at or after
// start. The header column wins ties. Returns -1 when no column has one.
func codeColumn(rows [][]string, start, preferred int) int {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	best, bestCount := -1, 0
	for col := 0; col < width; col++ {
		count := 0
		for i := start; i < len(rows); i++ {
			if _, err := normalize.ParseCodigo(cell(rows[i], col)); err == nil {
				count++
			}
		}
		if count > bestCount || (count == bestCount && count > 0 && col == preferred) {
			best, bestCount = col, count
		}
	}
	return best
}

// SeedFromRows scans a code sheet, keeps the highest sequence per
// provider/type pair and raises the stored counters to follow it. Counters
// are never lowered, so seeding an old sheet twice is harmless.
func (s *counterService) SeedFromRows(ctx context.Context, rows [][]string, dryRun bool) (*dto.CounterSeedResult, error) {
	start, preferred := 0, -1
	if idx, cols, ok := findHeader(rows, nil); ok {
		start, preferred = idx+1, cols[normalize.FieldCodigo]
	}
	col := codeColumn(rows, start, preferred)
	if col < 0 {
		return nil, apierror.New(apierror.InvalidArgument, "No se encontraron códigos válidos para generar counters")
	}

	res := &dto.CounterSeedResult{DryRun: dryRun, Errors: []dto.RecordError{}, Counters: []dto.SKUCounter{}}
	byKey := map[string]*dto.SKUCounter{}
	for i := start; i < len(rows); i++ {
		if blankRow(rows[i]) {
			continue
		}
		res.TotalRows++
		raw := cell(rows[i], col)
		if raw == "" {
			continue
		}
		parts, err := normalize.ParseCodigo(raw)
		if err != nil {
			if len(res.Errors) < maxSeedErrors {
				res.Errors = append(res.Errors, dto.RecordError{Row: i + 1, Code: raw, Reason: reasonFormato})
			}
			continue
		}
		res.ValidCodes++

		key := model.SKUCounterName(parts.ProviderCode, parts.TypeCode)
		c, ok := byKey[key]
		if !ok {
			c = &dto.SKUCounter{Key: key}
			byKey[key] = c
		}
		c.TotalCodesSeen++
		if parts.SeqNumber >= c.LastSeq {
			c.LastSeq = parts.SeqNumber
			c.SampleLastCode = normalize.NormalizeCodigo(raw)
		}
	}
	if len(byKey) == 0 {
		return nil, apierror.New(apierror.InvalidArgument, "No se encontraron códigos válidos para generar counters")
	}

	floors := make([]model.Counter, 0, len(byKey))
	for _, c := range byKey {
		c.Next = c.LastSeq + 1
		res.Counters = append(res.Counters, *c)
		floors = append(floors, model.Counter{
			Name: c.Key, Next: c.Next, Source: CounterSeedSource, SampleLastCode: c.SampleLastCode,
		})
	}
	sort.Slice(res.Counters, func(i, j int) bool { return res.Counters[i].Key < res.Counters[j].Key })

	if !dryRun {
		written, err := s.repo.Raise(ctx, floors)
		if err != nil {
			return nil, apierror.Wrap(apierror.Internal, "No se pudieron guardar los counters", err)
		}
		res.Written = written
	}
	log.Info().Int("rows", res.TotalRows).Int("valid", res.ValidCodes).Int("counters", len(res.Counters)).
		Int("written", res.Written).Bool("dry_run", dryRun).Msg("counters sembrados")
	return res, nil
}

func (s *counterService) List(ctx context.Context) ([]dto.SKUCounter, error) {
	counters, err := s.repo.List(ctx, model.SKUCounterPrefix)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "No se pudieron leer los counters", err)
	}
	out := make([]dto.SKUCounter, 0, len(counters))
	for i := range counters {
		c := counters[i]
		out = append(out, dto.SKUCounter{
			Key:            c.Name,
			LastSeq:        c.Next - 1,
			Next:           c.Next,
			SampleLastCode: c.SampleLastCode,
			UpdatedAt:      &c.UpdatedAt,
		})
	}
	return out, nil
}
