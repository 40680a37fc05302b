package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/onisimchukv/ksql/internal/client"
	"github.com/onisimchukv/ksql/internal/sql/expr"
	"github.com/onisimchukv/ksql/internal/sql/planner"
	"github.com/onisimchukv/ksql/internal/sql/schema"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// A plan document is an analyzed query written as JSON:
//
//	{
//	  "sources": {"ORDERS": {"type": "STREAM", "key": [{"name": "ID", "type": "BIGINT"}], "value": [...]}},
//	  "from": {"source": "ORDERS", "alias": "O"},
//	  "join": {"type": "LEFT", "source": "USERS", "alias": "U", "left": "O.USER_ID", "right": "U.ID"},
//	  "where": {"op": ">", "left": "O.QTY", "right": {"literal": 1}},
//	  "group_by": ["O.ITEM"],
//	  "window": {"type": "TUMBLING", "size": "1h"},
//	  "select": ["O.ITEM", {"expr": {"call": "COUNT", "args": ["O.QTY"]}, "alias": "N"}],
//	  "into": "ITEM_COUNTS"
//	}
//
// A bare string expression is a column reference, qualified when it holds a
// dot. In the select list "*" and "X.*" select all columns.

var binaryOperators = map[string]expr.BinaryOperator{
	"+": expr.OpAdd, "-": expr.OpSubtract, "*": expr.OpMultiply, "/": expr.OpDivide, "%": expr.OpModulo,
	"=": expr.OpEqual, "!=": expr.OpNotEqual, "<>": expr.OpNotEqual,
	"<": expr.OpLess, "<=": expr.OpLessEqual, ">": expr.OpGreater, ">=": expr.OpGreaterEqual,
	"AND": expr.OpAnd, "OR": expr.OpOr, "||": expr.OpConcat,
}

var unaryOperators = map[string]expr.UnaryOperator{
	"NOT": expr.OpNot, "-": expr.OpNegate, "IS NULL": expr.OpIsNull, "IS NOT NULL": expr.OpIsNotNull,
}

var joinTypes = map[string]planner.JoinType{
	"INNER": planner.InnerJoin, "LEFT": planner.LeftJoin, "OUTER": planner.OuterJoin,
}

var windowTypes = map[string]planner.WindowType{
	"TUMBLING": planner.Tumbling, "HOPPING": planner.Hopping, "SESSION": planner.Session,
}

// documentDecoder turns a plan document into a planner.Analysis.
type documentDecoder struct {
	parser  *types.Parser
	sources map[string]planner.DataSource
}

// LoadAnalysis decodes a plan document. Column types are parsed with parser.
func LoadAnalysis(data []byte, parser *types.Parser) (*planner.Analysis, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("plan document is not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	d := &documentDecoder{parser: parser, sources: make(map[string]planner.DataSource)}

	var err error
	doc.Get("sources").ForEach(func(name, source gjson.Result) bool {
		err = d.decodeSource(name.Str, source)
		return err == nil
	})
	if err != nil {
		return nil, err
	}

	a := &planner.Analysis{Into: schema.SourceName(doc.Get("into").String())}
	if a.From, err = d.aliasedSource(doc.Get("from")); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if join := doc.Get("join"); join.Exists() {
		if a.Join, err = d.decodeJoin(join); err != nil {
			return nil, fmt.Errorf("join: %w", err)
		}
	}
	if a.Where, err = optionalExpression(doc.Get("where"), d.parser); err != nil {
		return nil, fmt.Errorf("where: %w", err)
	}
	if a.PartitionBy, err = optionalExpression(doc.Get("partition_by"), d.parser); err != nil {
		return nil, fmt.Errorf("partition_by: %w", err)
	}
	for i, g := range doc.Get("group_by").Array() {
		e, err := decodeExpression(g, d.parser)
		if err != nil {
			return nil, fmt.Errorf("group_by[%d]: %w", i, err)
		}
		a.GroupBy = append(a.GroupBy, e)
	}
	if window := doc.Get("window"); window.Exists() {
		if a.Window, err = decodeWindow(window); err != nil {
			return nil, fmt.Errorf("window: %w", err)
		}
	}
	if a.Projection, err = decodeProjection(doc.Get("select"), d.parser); err != nil {
		return nil, err
	}
	return a, nil
}

func (d *documentDecoder) decodeSource(name string, source gjson.Result) error {
	var outputType planner.OutputType
	switch strings.ToUpper(source.Get("type").String()) {
	case "STREAM":
		outputType = planner.Stream
	case "TABLE":
		outputType = planner.Table
	default:
		return fmt.Errorf("source %s: type must be STREAM or TABLE, got %q", name, source.Get("type").String())
	}

	b := schema.NewBuilder()
	for _, c := range source.Get("key").Array() {
		t, err := d.parser.Parse(c.Get("type").String())
		if err != nil {
			return fmt.Errorf("source %s key column %s: %w", name, c.Get("name").String(), err)
		}
		b.KeyColumn(schema.ColumnName(c.Get("name").String()), t)
	}
	for _, c := range source.Get("value").Array() {
		t, err := d.parser.Parse(c.Get("type").String())
		if err != nil {
			return fmt.Errorf("source %s column %s: %w", name, c.Get("name").String(), err)
		}
		b.ValueColumn(schema.ColumnName(c.Get("name").String()), t)
	}
	s, err := b.Build()
	if err != nil {
		return fmt.Errorf("source %s: %w", name, err)
	}

	d.sources[name] = planner.DataSource{
		Name:     schema.SourceName(name),
		Type:     outputType,
		Schema:   s,
		Windowed: source.Get("windowed").Bool(),
	}
	return nil
}

func (d *documentDecoder) aliasedSource(v gjson.Result) (planner.AliasedDataSource, error) {
	name := v.Get("source").String()
	source, ok := d.sources[name]
	if !ok {
		return planner.AliasedDataSource{}, fmt.Errorf("unknown source %q", name)
	}
	return planner.AliasedDataSource{Source: source, Alias: schema.SourceName(v.Get("alias").String())}, nil
}

func (d *documentDecoder) decodeJoin(v gjson.Result) (*planner.JoinInfo, error) {
	joinType := planner.InnerJoin
	if t := v.Get("type"); t.Exists() {
		var ok bool
		if joinType, ok = joinTypes[strings.ToUpper(t.String())]; !ok {
			return nil, fmt.Errorf("unknown join type %q", t.String())
		}
	}
	right, err := d.aliasedSource(v)
	if err != nil {
		return nil, err
	}
	left, err := decodeExpression(v.Get("left"), d.parser)
	if err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	rightKey, err := decodeExpression(v.Get("right"), d.parser)
	if err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}
	return &planner.JoinInfo{Type: joinType, Right: right, LeftKey: left, RightKey: rightKey}, nil
}

func decodeWindow(v gjson.Result) (*planner.WindowExpression, error) {
	windowType, ok := windowTypes[strings.ToUpper(v.Get("type").String())]
	if !ok {
		return nil, fmt.Errorf("unknown window type %q", v.Get("type").String())
	}
	w := &planner.WindowExpression{Type: windowType}
	var err error
	if w.Size, err = time.ParseDuration(v.Get("size").String()); err != nil {
		return nil, fmt.Errorf("size: %w", err)
	}
	if advance := v.Get("advance"); advance.Exists() {
		if w.Advance, err = time.ParseDuration(advance.String()); err != nil {
			return nil, fmt.Errorf("advance: %w", err)
		}
	}
	return w, nil
}

func decodeProjection(v gjson.Result, parser *types.Parser) (*expr.Projection, error) {
	var items []expr.SelectItem
	for i, item := range v.Array() {
		switch {
		case item.Type == gjson.String && item.Str == "*":
			items = append(items, &expr.AllColumns{})
		case item.Type == gjson.String && strings.HasSuffix(item.Str, ".*"):
			items = append(items, &expr.AllColumns{Source: schema.SourceName(strings.TrimSuffix(item.Str, ".*"))})
		case item.IsObject() && item.Get("expr").Exists():
			e, err := decodeExpression(item.Get("expr"), parser)
			if err != nil {
				return nil, fmt.Errorf("select[%d]: %w", i, err)
			}
			items = append(items, &expr.SingleColumn{Expression: e, Alias: schema.ColumnName(item.Get("alias").String())})
		default:
			e, err := decodeExpression(item, parser)
			if err != nil {
				return nil, fmt.Errorf("select[%d]: %w", i, err)
			}
			items = append(items, &expr.SingleColumn{Expression: e})
		}
	}
	return expr.NewProjection(items...), nil
}

func optionalExpression(v gjson.Result, parser *types.Parser) (expr.Expression, error) {
	if !v.Exists() {
		return nil, nil
	}
	return decodeExpression(v, parser)
}

func decodeExpression(v gjson.Result, parser *types.Parser) (expr.Expression, error) {
	switch {
	case v.Type == gjson.String:
		if source, name, ok := strings.Cut(v.Str, "."); ok {
			return expr.QualifiedColumn(schema.SourceName(source), schema.ColumnName(name)), nil
		}
		return expr.Column(schema.ColumnName(v.Str)), nil
	case !v.IsObject():
		return nil, fmt.Errorf("unrecognised expression %s", v.Raw)
	case v.Get("column").Exists():
		name := schema.ColumnName(v.Get("column").String())
		if source := v.Get("source"); source.Exists() {
			return expr.QualifiedColumn(schema.SourceName(source.String()), name), nil
		}
		return expr.Column(name), nil
	case v.Get("literal").Exists():
		return decodeLiteral(v, parser)
	case v.Get("call").Exists():
		var args []expr.Expression
		for i, arg := range v.Get("args").Array() {
			e, err := decodeExpression(arg, parser)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+1, err)
			}
			args = append(args, e)
		}
		return expr.Call(v.Get("call").String(), args...), nil
	case v.Get("op").Exists():
		return decodeOperator(v, parser)
	default:
		return nil, fmt.Errorf("unrecognised expression %s", v.Raw)
	}
}

func decodeOperator(v gjson.Result, parser *types.Parser) (expr.Expression, error) {
	op := strings.ToUpper(v.Get("op").String())
	if arg := v.Get("arg"); arg.Exists() {
		unary, ok := unaryOperators[op]
		if !ok {
			return nil, fmt.Errorf("unknown unary operator %q", op)
		}
		e, err := decodeExpression(arg, parser)
		if err != nil {
			return nil, err
		}
		return expr.Unary(unary, e), nil
	}

	binary, ok := binaryOperators[op]
	if !ok {
		return nil, fmt.Errorf("unknown binary operator %q", op)
	}
	left, err := decodeExpression(v.Get("left"), parser)
	if err != nil {
		return nil, err
	}
	right, err := decodeExpression(v.Get("right"), parser)
	if err != nil {
		return nil, err
	}
	return expr.Binary(left, binary, right), nil
}

// decodeLiteral uses the declared type when there is one. Otherwise it infers
// BOOLEAN, STRING, INT, BIGINT or DOUBLE from the JSON value.
func decodeLiteral(v gjson.Result, parser *types.Parser) (expr.Expression, error) {
	literal := v.Get("literal")
	if declared := v.Get("type"); declared.Exists() {
		t, err := parser.Parse(declared.String())
		if err != nil {
			return nil, err
		}
		value, err := client.DecodeValue(literal.Raw, t, false)
		if err != nil {
			return nil, err
		}
		return expr.NewLiteral(value, t)
	}

	switch literal.Type {
	case gjson.True, gjson.False:
		return expr.Boolean(literal.Bool()), nil
	case gjson.String:
		return expr.String(literal.Str), nil
	case gjson.Number:
		if n, err := strconv.ParseInt(literal.Raw, 10, 32); err == nil {
			return expr.Int(int32(n)), nil
		}
		if n, err := strconv.ParseInt(literal.Raw, 10, 64); err == nil {
			return expr.BigInt(n), nil
		}
		return expr.Double(literal.Float()), nil
	default:
		return nil, fmt.Errorf("literal %s needs a declared type", literal.Raw)
	}
}
