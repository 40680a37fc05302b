package planner

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/onisimchukv/ksql/internal/sql/schema"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

func TestConcurrentPlanReads(t *testing.T) {
	defer goleak.VerifyNone(t)

	plan := buildJoinPlan(t)
	wantExplain := ExplainPlan(plan)
	wantStar := slices.Collect(plan.ResolveSelectStar(types.None[schema.SourceName]()))
	wantSteps, err := BuildStream[[]string](plan, stepRecorder{})
	require.NoError(t, err)

	var g errgroup.Group
	g.SetLimit(8)
	for range 64 {
		g.Go(func() error {
			assert.Equal(t, wantExplain, ExplainPlan(plan))
			assert.Equal(t, wantStar, slices.Collect(plan.ResolveSelectStar(types.None[schema.SourceName]())))

			steps, err := BuildStream[[]string](plan, stepRecorder{})
			if err != nil {
				return err
			}
			assert.Equal(t, wantSteps, steps)

			_, err = GetTheSourceNode(plan)
			return err
		})
	}
	require.NoError(t, g.Wait())
}

func TestConcurrentPlanning(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newPlanner()
	ids := make([]string, 32)

	var g errgroup.Group
	for i := range ids {
		g.Go(func() error {
			a := joinAnalysis(t)
			a.Projection = selectItems(qcol("O", "CUSTOMER_ID"), qcol("C", "NAME"))
			a.Into = "ENRICHED"
			plan, err := p.BuildPlan(a)
			if err != nil {
				return err
			}
			ids[i] = plan.QueryID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	slices.Sort(ids)
	assert.Len(t, slices.Compact(ids), len(ids))
}
