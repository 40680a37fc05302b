package schema

// ColumnName names a column. Names are case-sensitive.
type ColumnName string

func (n ColumnName) String() string { return string(n) }

// SourceName names a stream, table or the alias a query gives one.
type SourceName string

func (n SourceName) String() string { return string(n) }

// Namespace is the partition of a schema a column belongs to.
type Namespace int

const (
	Value Namespace = iota
	Key
)

func (ns Namespace) String() string {
	if ns == Key {
		return "KEY"
	}
	return "VALUE"
}

// System column names.
const (
	RowTimeName     ColumnName = "ROWTIME"
	RowKeyName      ColumnName = "ROWKEY"
	WindowStartName ColumnName = "WINDOWSTART"
	WindowEndName   ColumnName = "WINDOWEND"
)

// IsPseudoColumn reports whether name is a pseudo column populated from record
// metadata rather than user data.
func IsPseudoColumn(name ColumnName) bool {
	return name == RowTimeName
}

// IsWindowBound reports whether name is one of the window bound columns.
func IsWindowBound(name ColumnName) bool {
	return name == WindowStartName || name == WindowEndName
}

// IsSystemColumn reports whether name is reserved by the engine.
func IsSystemColumn(name ColumnName) bool {
	return IsPseudoColumn(name) || IsWindowBound(name)
}
