package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCounterRepo mirrors the Postgres upsert: a counter only moves up.
type memCounterRepo struct {
	counters map[string]model.Counter
	err      error
}

func newMemCounterRepo() *memCounterRepo {
	return &memCounterRepo{counters: map[string]model.Counter{}}
}

func (r *memCounterRepo) Raise(_ context.Context, floors []model.Counter) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	moved := 0
	for _, f := range floors {
		if cur, ok := r.counters[f.Name]; ok && cur.Next >= f.Next {
			continue
		}
		f.UpdatedAt = testNow
		r.counters[f.Name] = f
		moved++
	}
	return moved, nil
}

func (r *memCounterRepo) List(_ context.Context, prefix string) ([]model.Counter, error) {
	var out []model.Counter
	for name, c := range r.counters {
		if strings.HasPrefix(name, prefix) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func codeSheet() [][]string {
	return [][]string{
		{"Inventario Haruja", ""},
		{"Descripción", "Código"},
		{"Blusa", "HA4A001/AM-M"},
		{"Blusa", "ha4a007/am-s"},
		{"Vestido", "HA4B003/NG-U"},
		{"", ""},
		{"Falda", "HA4A002/AM-L"},
		{"Sin formato", "BLUSA-9"},
		{"Sin código", ""},
		{"Bolsa", "HA12C010/CF-UN"},
	}
}

func TestSeedFromRows_KeepsHighestSequencePerPair(t *testing.T) {
	repo := newMemCounterRepo()
	svc := NewCounterService(repo)

	res, err := svc.SeedFromRows(context.Background(), codeSheet(), false)
	require.NoError(t, err)
	assert.Equal(t, 7, res.TotalRows)
	assert.Equal(t, 5, res.ValidCodes)
	assert.Equal(t, 3, res.Written)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "BLUSA-9", res.Errors[0].Code)
	assert.Equal(t, 8, res.Errors[0].Row)

	require.Len(t, res.Counters, 3)
	a := res.Counters[1]
	assert.Equal(t, "prov4_tipoA", a.Key)
	assert.Equal(t, 7, a.LastSeq)
	assert.Equal(t, 8, a.Next)
	assert.Equal(t, 3, a.TotalCodesSeen)
	assert.Equal(t, "HA4A007/AM-S", a.SampleLastCode)
	assert.Equal(t, "prov12_tipoC", res.Counters[0].Key)
	assert.Equal(t, "prov4_tipoB", res.Counters[2].Key)

	stored := repo.counters["prov4_tipoA"]
	assert.Equal(t, 8, stored.Next)
	assert.Equal(t, CounterSeedSource, stored.Source)
}

func TestSeedFromRows_NeverLowersCounters(t *testing.T) {
	repo := newMemCounterRepo()
	repo.counters["prov4_tipoA"] = model.Counter{Name: "prov4_tipoA", Next: 40}
	svc := NewCounterService(repo)

	res, err := svc.SeedFromRows(context.Background(), codeSheet(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 40, repo.counters["prov4_tipoA"].Next)

	again, err := svc.SeedFromRows(context.Background(), codeSheet(), false)
	require.NoError(t, err)
	assert.Zero(t, again.Written, "reseeding the same sheet moves nothing")
}

func TestSeedFromRows_DryRun(t *testing.T) {
	repo := newMemCounterRepo()
	res, err := NewCounterService(repo).SeedFromRows(context.Background(), codeSheet(), true)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Len(t, res.Counters, 3)
	assert.Zero(t, res.Written)
	assert.Empty(t, repo.counters)
}

func TestSeedFromRows_DetectsCodeColumnWithoutHeader(t *testing.T) {
	rows := [][]string{
		{"Blusa", "HA4A001/AM-M", "120"},
		{"Blusa", "HA4A005/AM-M", "120"},
	}
	res, err := NewCounterService(newMemCounterRepo()).SeedFromRows(context.Background(), rows, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalRows)
	require.Len(t, res.Counters, 1)
	assert.Equal(t, 5, res.Counters[0].LastSeq)
}

func TestSeedFromRows_Errors(t *testing.T) {
	svc := NewCounterService(newMemCounterRepo())
	_, err := svc.SeedFromRows(context.Background(), [][]string{{"Código"}, {"sin formato"}}, false)
	require.Error(t, err)
	assert.Equal(t, apierror.InvalidArgument, apierror.From(err).Code)

	failing := newMemCounterRepo()
	failing.err = errors.New("conexión perdida")
	_, err = NewCounterService(failing).SeedFromRows(context.Background(), codeSheet(), false)
	require.Error(t, err)
	assert.Equal(t, apierror.Internal, apierror.From(err).Code)
}

func TestCounterList(t *testing.T) {
	repo := newMemCounterRepo()
	repo.counters["prov4_tipoA"] = model.Counter{Name: "prov4_tipoA", Next: 8, UpdatedAt: testNow}
	repo.counters[model.CounterLoyaltyClientSeq] = model.Counter{Name: model.CounterLoyaltyClientSeq, Next: 3}

	out, err := NewCounterService(repo).List(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1, "loyalty sequence is not a SKU counter")
	assert.Equal(t, 7, out[0].LastSeq)
	require.NotNil(t, out[0].UpdatedAt)
	assert.True(t, out[0].UpdatedAt.Equal(testNow.In(time.UTC)))
}
