package planner

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onisimchukv/ksql/internal/log"
	"github.com/onisimchukv/ksql/internal/sql/expr"
	"github.com/onisimchukv/ksql/internal/sql/schema"
	"github.com/onisimchukv/ksql/internal/testutil"
)

func newPlanner() *LogicalPlanner {
	return NewLogicalPlanner(functions, log.Discard())
}

func from(source DataSource, alias string) AliasedDataSource {
	return AliasedDataSource{Source: source, Alias: schema.SourceName(alias)}
}

// SELECT ITEM, QTY * 2 AS DOUBLE_QTY FROM ORDERS WHERE PRICE > 10.0
func simpleAnalysis(t *testing.T) *Analysis {
	return &Analysis{
		From:  from(ordersSource(t), ""),
		Where: expr.Binary(col("PRICE"), expr.OpGreater, expr.Double(10)),
		Projection: expr.NewProjection(
			&expr.SingleColumn{Expression: col("ITEM")},
			aliased(expr.Binary(col("QTY"), expr.OpMultiply, expr.Int(2)), "DOUBLE_QTY"),
		),
	}
}

// SELECT O.ITEM, C.NAME FROM ORDERS O JOIN CUSTOMERS C ON O.CUSTOMER_ID = C.ID WHERE O.QTY > 1
func joinAnalysis(t *testing.T) *Analysis {
	return &Analysis{
		From: from(ordersSource(t), "O"),
		Join: &JoinInfo{
			Type:     InnerJoin,
			Right:    from(customersSource(t), "C"),
			LeftKey:  qcol("O", "CUSTOMER_ID"),
			RightKey: qcol("C", "ID"),
		},
		Where:      expr.Binary(qcol("O", "QTY"), expr.OpGreater, expr.Int(1)),
		Projection: selectItems(qcol("O", "ITEM"), qcol("C", "NAME")),
	}
}

func buildJoinPlan(t *testing.T) *OutputNode {
	t.Helper()
	plan, err := newPlanner().BuildPlan(joinAnalysis(t))
	require.NoError(t, err)
	return plan
}

func TestBuildPlanSimple(t *testing.T) {
	plan, err := newPlanner().BuildPlan(simpleAnalysis(t))
	require.NoError(t, err)

	assert.False(t, plan.IsPersistent())
	assert.Equal(t, Stream, plan.NodeOutputType())
	assert.Equal(t, "ORDER_ID BIGINT KEY, ITEM STRING, DOUBLE_QTY INT", plan.Schema().String())

	require.True(t, strings.HasPrefix(plan.QueryID, "transient_"), plan.QueryID)
	_, err = uuid.Parse(strings.TrimPrefix(plan.QueryID, "transient_"))
	assert.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "simple_plan", []byte(ExplainPlan(plan)))
	g.Assert(t, "simple_plan_verbose", []byte(ExplainPlanVerbose(plan)))
}

func TestBuildPlanJoin(t *testing.T) {
	plan := buildJoinPlan(t)

	assert.Equal(t, "O_CUSTOMER_ID BIGINT KEY, O_ITEM STRING, C_NAME STRING", plan.Schema().String())
	source, err := GetTheSourceNode(plan)
	require.NoError(t, err)
	assert.Equal(t, schema.SourceName("O"), source.Alias)

	goldie.New(t).Assert(t, "join_plan", []byte(ExplainPlan(plan)))
}

func TestBuildPlanAggregate(t *testing.T) {
	// CREATE TABLE ITEM_TOTALS AS SELECT ITEM, SUM(QTY) AS TOTAL FROM ORDERS
	// WINDOW TUMBLING (SIZE 60 SECONDS) GROUP BY ITEM
	analysis := &Analysis{
		From:    from(ordersSource(t), ""),
		GroupBy: []expr.Expression{col("ITEM")},
		Window:  &WindowExpression{Type: Tumbling, Size: time.Minute},
		Projection: expr.NewProjection(
			&expr.SingleColumn{Expression: col("ITEM")},
			aliased(expr.Call("SUM", col("QTY")), "TOTAL"),
		),
		Into: "ITEM_TOTALS",
	}

	plan, err := newPlanner().BuildPlan(analysis)
	require.NoError(t, err)

	assert.True(t, plan.IsPersistent())
	assert.Equal(t, Table, plan.NodeOutputType())
	assert.Equal(t, "CTAS_ITEM_TOTALS_0", plan.QueryID)
	assert.Equal(t, "ITEM STRING KEY, ITEM STRING, TOTAL INT", plan.Schema().String())

	goldie.New(t).Assert(t, "aggregate_plan", []byte(ExplainPlan(plan)))
}

func TestBuildPlanFlatMapAndPartition(t *testing.T) {
	// CREATE STREAM TAGGED AS SELECT ITEM, EXPLODE(TAGS) AS TAG FROM ORDERS PARTITION BY ITEM
	analysis := &Analysis{
		From:        from(ordersSource(t), ""),
		PartitionBy: col("ITEM"),
		Projection: expr.NewProjection(
			&expr.SingleColumn{Expression: col("ITEM")},
			aliased(expr.Call("EXPLODE", col("TAGS")), "TAG"),
		),
		Into: "TAGGED",
	}

	p := newPlanner()
	plan, err := p.BuildPlan(analysis)
	require.NoError(t, err)
	assert.Equal(t, "CSAS_TAGGED_0", plan.QueryID)
	assert.Equal(t, "ITEM STRING KEY, ITEM STRING, TAG STRING", plan.Schema().String())

	goldie.New(t).Assert(t, "flatmap_plan", []byte(ExplainPlan(plan)))

	again, err := p.BuildPlan(analysis)
	require.NoError(t, err)
	assert.Equal(t, "CSAS_TAGGED_1", again.QueryID)
}

func TestBuildPlanSelectStar(t *testing.T) {
	t.Run("single source", func(t *testing.T) {
		plan, err := newPlanner().BuildPlan(&Analysis{
			From:       from(ordersSource(t), ""),
			Projection: expr.NewProjection(&expr.AllColumns{}),
		})
		require.NoError(t, err)
		assert.Equal(t,
			"ORDER_ID BIGINT KEY, ORDER_ID BIGINT, ITEM STRING, QTY INT, PRICE DOUBLE, CUSTOMER_ID BIGINT, TAGS ARRAY<STRING>",
			plan.Schema().String())
	})

	t.Run("qualified in join", func(t *testing.T) {
		analysis := joinAnalysis(t)
		analysis.Projection = expr.NewProjection(&expr.AllColumns{Source: "C"}, &expr.SingleColumn{Expression: qcol("O", "ITEM")})

		plan, err := newPlanner().BuildPlan(analysis)
		require.NoError(t, err)
		project := plan.Source().(*ProjectNode)
		assert.Equal(t, "Project(C_ID, C_NAME, C_REGION, O_ITEM)", project.String())
	})

	t.Run("persistent table keeps its key", func(t *testing.T) {
		plan, err := newPlanner().BuildPlan(&Analysis{
			From:       from(customersSource(t), ""),
			Projection: expr.NewProjection(&expr.AllColumns{}),
			Into:       "CUSTOMER_COPY",
		})
		require.NoError(t, err)
		assert.Equal(t, "CTAS_CUSTOMER_COPY_0", plan.QueryID)
	})
}

func TestBuildPlanDefaultAliases(t *testing.T) {
	plan, err := newPlanner().BuildPlan(&Analysis{
		From: from(ordersSource(t), "O"),
		Projection: selectItems(
			qcol("O", "ITEM"),
			expr.Binary(col("QTY"), expr.OpAdd, expr.Int(1)),
			expr.Unary(expr.OpIsNull, col("PRICE")),
		),
	})
	require.NoError(t, err)
	assert.Equal(t, "ORDER_ID BIGINT KEY, ITEM STRING, KSQL_COL_1 INT, KSQL_COL_2 BOOLEAN", plan.Schema().String())
}

func TestBuildPlanErrors(t *testing.T) {
	tests := []struct {
		name     string
		analysis func(t *testing.T) *Analysis
		expected string
	}{
		{
			name: "empty projection",
			analysis: func(t *testing.T) *Analysis {
				return &Analysis{From: from(ordersSource(t), ""), Projection: expr.NewProjection()}
			},
			expected: "The projection contains no columns",
		},
		{
			name: "star with group by",
			analysis: func(t *testing.T) *Analysis {
				return &Analysis{
					From:       from(ordersSource(t), ""),
					GroupBy:    []expr.Expression{col("ITEM")},
					Projection: expr.NewProjection(&expr.AllColumns{}),
				}
			},
			expected: "SELECT * is not supported in aggregate queries",
		},
		{
			name: "unknown star qualifier",
			analysis: func(t *testing.T) *Analysis {
				return &Analysis{
					From:       from(ordersSource(t), ""),
					Projection: expr.NewProjection(&expr.AllColumns{Source: "X"}),
				}
			},
			expected: "Source 'X' does not exist in the query.",
		},
		{
			name: "qualifier of another source",
			analysis: func(t *testing.T) *Analysis {
				return &Analysis{
					From:       from(ordersSource(t), "O"),
					Projection: selectItems(qcol("ORDERS", "ITEM")),
				}
			},
			expected: "Column 'ORDERS.ITEM' cannot be resolved.",
		},
		{
			name: "ambiguous join column",
			analysis: func(t *testing.T) *Analysis {
				a := joinAnalysis(t)
				a.Projection = selectItems(col("ITEM"), col("ROWTIME"))
				return a
			},
			expected: "Column 'ROWTIME' is ambiguous.",
		},
		{
			name: "unknown join column",
			analysis: func(t *testing.T) *Analysis {
				a := joinAnalysis(t)
				a.Where = expr.Binary(col("NOPE"), expr.OpEqual, expr.Int(1))
				return a
			},
			expected: "Column 'NOPE' cannot be resolved.",
		},
		{
			name: "window without group by",
			analysis: func(t *testing.T) *Analysis {
				a := simpleAnalysis(t)
				a.Window = &WindowExpression{Type: Tumbling, Size: time.Second}
				return a
			},
			expected: "WINDOW clause requires a GROUP BY clause",
		},
		{
			name: "aggregate without group by",
			analysis: func(t *testing.T) *Analysis {
				return &Analysis{
					From:       from(ordersSource(t), ""),
					Projection: selectItems(expr.Call("COUNT")),
				}
			},
			expected: "Aggregate query requires a GROUP BY clause",
		},
		{
			name: "table sink without key",
			analysis: func(t *testing.T) *Analysis {
				return &Analysis{
					From:       from(customersSource(t), ""),
					Projection: selectItems(col("NAME")),
					Into:       "NAMES",
				}
			},
			expected: "The query used to build NAMES must include the primary key column ID in its projection.",
		},
		{
			name: "join sink without join key",
			analysis: func(t *testing.T) *Analysis {
				a := joinAnalysis(t)
				a.Into = "ENRICHED"
				return a
			},
			expected: "The query used to build ENRICHED must include the join expressions O_CUSTOMER_ID or C_ID in its projection.",
		},
		{
			name: "duplicate alias",
			analysis: func(t *testing.T) *Analysis {
				return &Analysis{
					From:       from(ordersSource(t), ""),
					Projection: expr.NewProjection(aliased(col("ITEM"), "X"), aliased(col("QTY"), "X")),
				}
			},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newPlanner().BuildPlan(tt.analysis(t))
			testutil.AssertPlanError(t, err, tt.expected)
		})
	}
}

func TestBuildPlanLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogicalPlanner(functions, log.NewJSONLogger(&buf, slog.LevelDebug))

	plan, err := p.BuildPlan(simpleAnalysis(t))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "plan built", entry["msg"])
	assert.Equal(t, "planner", entry["component"])
	assert.Equal(t, plan.QueryID, entry["query_id"])
	assert.Equal(t, ExplainPlan(plan), entry["plan"])

	buf.Reset()
	quiet := NewLogicalPlanner(functions, log.NewJSONLogger(&buf, slog.LevelInfo))
	_, err = quiet.BuildPlan(simpleAnalysis(t))
	require.NoError(t, err)
	assert.Zero(t, buf.Len())
}
