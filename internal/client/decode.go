package client

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"github.com/onisimchukv/ksql/internal/config"
	qerrors "github.com/onisimchukv/ksql/internal/errors"
	"github.com/onisimchukv/ksql/internal/log"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// DefaultMaxResultRows is the row limit used when Options leaves it unset.
const DefaultMaxResultRows = 10000

// maxLineBytes bounds a single response line.
const maxLineBytes = 16 << 20

// Options controls how a query response is decoded.
type Options struct {
	// ExecuteQueryMaxResultRows caps the rows of a batched result.
	ExecuteQueryMaxResultRows int

	// StrictStructValidation rejects STRUCT values with undeclared fields.
	StrictStructValidation bool

	// Parser parses the column types of the metadata. Nil uses types.Parse.
	Parser *types.Parser

	// Logger receives decoding diagnostics. Nil uses log.Default().
	Logger log.Logger
}

// OptionsFromConfig builds decoding options from the tool configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ExecuteQueryMaxResultRows: cfg.Client.ExecuteQueryMaxResultRows,
		StrictStructValidation:    cfg.Planner.StrictStructValidation,
		Parser:                    types.NewParser(cfg.Planner.TypeCacheTTL),
	}
}

// ServerError is an error object the server sent in place of results.
type ServerError struct {
	Code    int64
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("Received error from server. Error code: %d. Message: %s", e.Code, e.Message)
}

// Decoder materializes a query response one line at a time. The first
// object is the metadata, every array after it is a row.
type Decoder struct {
	opts    Options
	convert converter
	parse   func(string) (types.SqlType, error)
	logger  log.Logger

	hasMetadata bool
	line        int
	queryID     string
	columnNames []string
	columnTypes []types.SqlType
	index       map[string]int
	rows        []*Row
}

// NewDecoder creates a decoder for a single response.
func NewDecoder(opts Options) *Decoder {
	if opts.ExecuteQueryMaxResultRows <= 0 {
		opts.ExecuteQueryMaxResultRows = DefaultMaxResultRows
	}
	d := &Decoder{
		opts:    opts,
		convert: converter{rejectUnknownFields: opts.StrictStructValidation},
		parse:   types.Parse,
		logger:  opts.Logger,
	}
	if opts.Parser != nil {
		d.parse = opts.Parser.Parse
	}
	if d.logger == nil {
		d.logger = log.Default()
	}
	return d
}

// DecodeBatch reads a complete newline-delimited response from r.
func DecodeBatch(r io.Reader, opts Options) (*BatchedQueryResult, error) {
	d := NewDecoder(opts)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := d.HandleLine(scanner.Bytes()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read query response: %w", err)
	}

	return d.Result()
}

// HandleLine consumes one line of the response. Blank lines are skipped.
func (d *Decoder) HandleLine(line []byte) error {
	d.line++
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	if !gjson.ValidBytes(line) {
		return qerrors.ProtocolErrorf("Malformed JSON on response line %d", d.line)
	}

	value := gjson.ParseBytes(line)
	switch {
	case value.IsObject() && value.Get("error_code").Exists():
		return &ServerError{
			Code:    value.Get("error_code").Int(),
			Message: value.Get("message").String(),
		}
	case value.IsObject():
		return d.handleMetadata(value)
	case value.IsArray():
		return d.handleRow(value)
	default:
		return qerrors.ProtocolErrorf("Unexpected value on response line %d: %s", d.line, value.Raw)
	}
}

func (d *Decoder) handleMetadata(value gjson.Result) error {
	if d.hasMetadata {
		return qerrors.ProtocolErrorf("Received metadata twice, second copy on response line %d", d.line)
	}

	names := value.Get("columnNames").Array()
	typeNames := value.Get("columnTypes").Array()
	if len(names) != len(typeNames) {
		return qerrors.ProtocolErrorf("Metadata has %d column names but %d column types", len(names), len(typeNames))
	}

	d.queryID = value.Get("queryId").String()
	d.columnNames = make([]string, len(names))
	d.columnTypes = make([]types.SqlType, len(typeNames))
	for i := range names {
		d.columnNames[i] = names[i].String()
		t, err := d.parse(typeNames[i].String())
		if err != nil {
			return err
		}
		d.columnTypes[i] = t
	}
	d.index = valueToIndex(d.columnNames)
	d.hasMetadata = true

	d.logger.Debug("query metadata received", "query_id", d.queryID, "columns", len(d.columnNames))
	return nil
}

func (d *Decoder) handleRow(value gjson.Result) error {
	if !d.hasMetadata {
		return qerrors.ProtocolErrorf("Row received before metadata on response line %d", d.line)
	}
	if len(d.rows) >= d.opts.ExecuteQueryMaxResultRows {
		return qerrors.RowLimitError(d.opts.ExecuteQueryMaxResultRows)
	}

	raw := value.Array()
	if len(raw) != len(d.columnTypes) {
		return qerrors.ProtocolErrorf("Row %d has %d values, expected %d", len(d.rows)+1, len(raw), len(d.columnTypes))
	}

	values := make([]any, len(raw))
	for i, element := range raw {
		v, err := d.convert.convert(element, d.columnTypes[i])
		if err != nil {
			return qerrors.WrapDataError(fmt.Sprintf("Row %d column '%s'", len(d.rows)+1, d.columnNames[i]), err)
		}
		values[i] = v
	}

	d.rows = append(d.rows, &Row{
		columnNames: d.columnNames,
		columnTypes: d.columnTypes,
		values:      values,
		index:       d.index,
	})
	return nil
}

// Result returns the rows decoded so far. It fails if no metadata arrived.
func (d *Decoder) Result() (*BatchedQueryResult, error) {
	if !d.hasMetadata {
		return nil, qerrors.ProtocolErrorf("Body ended before metadata received")
	}

	d.logger.Debug("query response decoded", "query_id", d.queryID, "rows", len(d.rows))
	return &BatchedQueryResult{
		QueryID:     d.queryID,
		ColumnNames: d.columnNames,
		ColumnTypes: d.columnTypes,
		Rows:        d.rows,
	}, nil
}
