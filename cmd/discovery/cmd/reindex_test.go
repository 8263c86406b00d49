package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/discovery/internal/domain/geo"
	"github.com/kailas-cloud/discovery/internal/domain/search/filter"
	"github.com/kailas-cloud/discovery/internal/domain/search/ranking"
	"github.com/kailas-cloud/discovery/internal/repository/bleveindex"
	"github.com/kailas-cloud/discovery/internal/usecase/projection"
)

const snapshots = `
{"providerId":"11111111-1111-1111-1111-111111111111","name":"A","latitude":-23.55,"longitude":-46.63,"subscriptionTier":"Gold","averageRating":4.1}
{"providerId":"22222222-2222-2222-2222-222222222222","name":"B","latitude":-23.56,"longitude":-46.64,"subscriptionTier":"Platinum"}

{"providerId":"33333333-3333-3333-3333-333333333333","latitude":1,"longitude":2}
not json
{"name":"no id","latitude":1,"longitude":2}
`

func TestReindex(t *testing.T) {
	idx, err := bleveindex.Open("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	p := projection.New(idx, projection.EventSnapshots{}, nil, zap.NewNop())
	stats, err := reindex(context.Background(), p, strings.NewReader(snapshots), zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 of 5 snapshots failed")
	assert.Equal(t, reindexStats{indexed: 2, failed: 3}, stats)

	n, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	q := ranking.Query{Center: geo.MustPoint(-23.55, -46.63), RadiusKm: 10, Filters: filter.Filters{}, Take: 10}
	res, err := idx.Search(context.Background(), &q)
	require.NoError(t, err)
	require.Len(t, res.Entries(), 2)
	assert.Equal(t, "B", res.Entries()[0].Name(), "platinum ranks first")
}

func TestReindex_KeepsEntryIDs(t *testing.T) {
	idx, err := bleveindex.Open("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	p := projection.New(idx, projection.EventSnapshots{}, nil, zap.NewNop())
	line := `{"providerId":"11111111-1111-1111-1111-111111111111","name":"A","latitude":1,"longitude":2}`

	_, err = reindex(context.Background(), p, strings.NewReader(line), zap.NewNop())
	require.NoError(t, err)
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	first, err := idx.Get(context.Background(), id)
	require.NoError(t, err)

	_, err = reindex(context.Background(), p, strings.NewReader(line), zap.NewNop())
	require.NoError(t, err)
	second, err := idx.Get(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, first.ID(), second.ID())
}

func TestReindex_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reindex(ctx, nil, strings.NewReader(snapshots), zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVersionCmd(t *testing.T) {
	root := NewRootCmd()
	var out strings.Builder
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "discovery dev")
}
