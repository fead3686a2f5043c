package selector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

func row(id byte, eligibleAt int64) api.Row {
	var r api.Row
	r.ID[0] = id
	r.EligibleAt = eligibleAt
	return r
}

func ids(rows []api.Row) map[api.Reference]struct{} {
	set := make(map[api.Reference]struct{}, len(rows))
	for _, r := range rows {
		set[r.ID] = struct{}{}
	}
	return set
}

func TestSelectReadyScenario(t *testing.T) {
	require := require.New(t)

	a, b, c := row('A', 100), row('B', 50), row('C', 75)

	ready, err := SelectReady([]api.Row{a, b, c}, 80, 0)
	require.NoError(err, "SelectReady")
	require.Equal([]api.Row{b, c}, ready)

	ready, err = SelectReady([]api.Row{a, b, c}, 80, 1)
	require.NoError(err)
	require.Equal([]api.Row{b}, ready, "limit caps the number of extractions")

	ready, err = SelectReady([]api.Row{a, b, c}, 100, 0)
	require.NoError(err)
	require.Equal([]api.Row{b, c, a}, ready, "rows eligible exactly at now are ready")
}

func TestSelectReadyNothingReady(t *testing.T) {
	require := require.New(t)

	ready, err := SelectReady([]api.Row{row(1, 10), row(2, 20)}, 5, 0)
	require.NoError(err, "nothing ready is not an error")
	require.Empty(ready)

	ready, err = SelectReady(nil, 5, 0)
	require.NoError(err)
	require.Empty(ready)
}

func TestSelectReadyMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	rows := make([]api.Row, 0, 200)
	for i := 0; i < 200; i++ {
		var r api.Row
		_, _ = rng.Read(r.ID[:])
		r.ID[0] |= 0x01
		r.EligibleAt = rng.Int63n(10_000)
		rows = append(rows, r)
	}

	prev := map[api.Reference]struct{}{}
	for now := int64(0); now <= 10_000; now += 250 {
		ready, err := SelectReady(rows, now, 0)
		require.NoError(t, err)

		for i, r := range ready {
			require.LessOrEqual(t, r.EligibleAt, now, "never returns a row that is not ready")
			if i > 0 {
				require.LessOrEqual(t, ready[i-1].EligibleAt, r.EligibleAt, "ascending eligibility")
			}
		}

		cur := ids(ready)
		for id := range prev {
			require.Contains(t, cur, id, "readiness is monotonic in time")
		}
		prev = cur
	}
	require.Len(t, prev, len(rows), "every row is ready eventually")
}

func TestNextEligible(t *testing.T) {
	require := require.New(t)

	_, ok := NextEligible(nil)
	require.False(ok)

	next, ok := NextEligible([]api.Row{row(1, 30), row(2, -5), row(3, 10)})
	require.True(ok)
	require.EqualValues(-5, next)
}
