package reftable

import (
	"fmt"
	"path"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/robert-malhotra/go-reftable/hdf5"
)

// DefaultReflectionGroup is the conventional group path under which a
// table's columns and metadata live.
const DefaultReflectionGroup = "/dials/processing/group_0"

// IDColumn is the column conventionally mapping rows to experiments.
// Its absence at write time is warned about, not rejected.
const IDColumn = "id"

// Table is an ordered collection of columns plus table-level experiment
// metadata. Columns are exclusively owned: Select deep-copies the filtered
// subset, and no column is ever shared between two tables.
type Table struct {
	columns []Column

	experimentIDs []uint64
	identifiers   []string
	nextID        uint64

	// filePath records load provenance; it is never re-read automatically.
	filePath string
	group    string
	logger   *Logger
}

// New creates an empty table with one freshly generated experiment
// id/identifier pair.
func New(opts ...Option) *Table {
	t := newTable(opts)
	t.GenerateNewAttributes()
	return t
}

// NewWithAttributes creates an empty table with explicit experiment ids and
// identifiers.
func NewWithAttributes(experimentIDs []uint64, identifiers []string, opts ...Option) *Table {
	t := newTable(opts)
	t.SetExperimentIDs(experimentIDs)
	t.SetIdentifiers(identifiers)
	return t
}

func newTable(opts []Option) *Table {
	t := &Table{
		group:  DefaultReflectionGroup,
		logger: defaultLogger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FromFile loads a table from an HDF5 file. Columns whose dataset cannot be
// read or whose type is unsupported are skipped with a warning; a file with
// no reflection group yields an empty table. Only failure to open the file
// itself is fatal.
func FromFile(filePath string, opts ...Option) (*Table, error) {
	t := newTable(opts)
	t.filePath = filePath

	start := time.Now()

	f, err := hdf5.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", filePath, err)
	}
	defer f.Close()

	if g, err := f.OpenGroup(t.group); err == nil {
		ids, identifiers, err := ReadExperimentMetadata(g)
		if err != nil {
			t.logger.Warn("could not read experiment metadata", "group", t.group, "error", err)
		} else {
			if len(ids) > 0 {
				t.SetExperimentIDs(ids)
			}
			t.identifiers = identifiers
		}
	}

	datasets, err := datasetsInGroup(f, t.group, t.logger)
	if err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		t.logger.Warn("no datasets found", "group", t.group)
	}

	for _, datasetPath := range datasets {
		name := path.Base(datasetPath)

		ds, err := f.OpenDataset(datasetPath)
		if err != nil {
			t.logger.Warn("could not open dataset", "dataset", datasetPath, "error", err)
			continue
		}

		dt, ok := dtypeForDataset(ds)
		if !ok {
			t.logger.Warn("skipping dataset of unsupported type", "dataset", datasetPath)
			continue
		}

		col, err := readColumn(f, datasetPath, name, dt)
		if err != nil {
			t.logger.Warn("skipping dataset", "dataset", datasetPath, "error", err)
			continue
		}

		t.putColumn(col)
		t.logger.Debug("loaded column", "name", name, "dtype", dt.String(), "shape", col.Shape())
	}

	t.logger.Debug("table loaded",
		"group", t.group,
		"columns", len(t.columns),
		"elapsed", time.Since(start))

	return t, nil
}

// ColumnNames returns the column names in insertion order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name()
	}
	return names
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// RowCount returns the row count of the first column, or 0 for a table with
// no columns. Row counts are not enforced eagerly across columns, so
// heterogeneous column sets can coexist while data sources are merged.
func (t *Table) RowCount() uint64 {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].RowCount()
}

// FilePath returns the provenance path this table was loaded from, or ""
// for tables built in memory or derived by selection.
func (t *Table) FilePath() string {
	return t.filePath
}

// ExperimentIDs returns the experiment id list.
func (t *Table) ExperimentIDs() []uint64 {
	return t.experimentIDs
}

// Identifiers returns the identifier list.
func (t *Table) Identifiers() []string {
	return t.identifiers
}

// SetExperimentIDs replaces the experiment id list and re-syncs the id
// counter past the highest id.
func (t *Table) SetExperimentIDs(ids []uint64) {
	t.experimentIDs = append([]uint64(nil), ids...)
	t.nextID = 0
	for _, id := range ids {
		if id+1 > t.nextID {
			t.nextID = id + 1
		}
	}
}

// SetIdentifiers replaces the identifier list.
func (t *Table) SetIdentifiers(identifiers []string) {
	t.identifiers = append([]string(nil), identifiers...)
}

// GenerateNewAttributes appends a fresh experiment id (one past the highest
// existing id, starting at 0) and a freshly generated identifier, returning
// the pair.
func (t *Table) GenerateNewAttributes() (uint64, string) {
	id := t.nextID
	t.nextID++
	identifier := uuid.NewString()

	t.experimentIDs = append(t.experimentIDs, id)
	t.identifiers = append(t.identifiers, identifier)

	t.logger.Debug("generated experiment attributes", "id", id, "identifier", identifier)
	return id, identifier
}

// Column returns the type-erased column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	for _, col := range t.columns {
		if col.Name() == name {
			return col, true
		}
	}
	return nil, false
}

// Get returns the typed column with the given name, or reports false when
// the name does not exist or its element type is not T. This is the
// principal type-safety boundary: a mismatched T is "absent", never a
// reinterpreted buffer.
func Get[T Scalar](t *Table, name string) (*TypedColumn[T], bool) {
	col, ok := t.Column(name)
	if !ok {
		return nil, false
	}
	return ColumnAs[T](col)
}

// AddColumn inserts a column built from a flat buffer of rows x components
// values, replacing any existing column with the same name in place.
// len(values) must equal rows*components.
func AddColumn[T Scalar](t *Table, name string, rows, components uint64, values []T) error {
	col, err := NewTypedColumn(name, []uint64{rows, components}, values)
	if err != nil {
		return err
	}
	t.putColumn(col)
	return nil
}

// putColumn appends col, or replaces an existing column with the same name
// without disturbing insertion order.
func (t *Table) putColumn(col Column) {
	for i, existing := range t.columns {
		if existing.Name() == col.Name() {
			t.columns[i] = col
			return
		}
	}
	t.columns = append(t.columns, col)
}

// Select returns a new table whose every column is restricted to the given
// rows, in the given order. Metadata and provenance are carried over
// unchanged. An index >= a column's row count is an error.
func (t *Table) Select(rows []uint64) (*Table, error) {
	out := &Table{
		experimentIDs: append([]uint64(nil), t.experimentIDs...),
		identifiers:   append([]string(nil), t.identifiers...),
		nextID:        t.nextID,
		filePath:      t.filePath,
		group:         t.group,
		logger:        t.logger,
	}

	for _, col := range t.columns {
		filtered, err := col.cloneFiltered(rows)
		if err != nil {
			return nil, err
		}
		out.columns = append(out.columns, filtered)
	}
	return out, nil
}

// SelectMask returns a new table restricted to the rows where mask is true.
// Defined purely in terms of Select with ascending indices, so masking only
// subsets rows, never reorders them.
func (t *Table) SelectMask(mask []bool) (*Table, error) {
	var rows []uint64
	for i, keep := range mask {
		if keep {
			rows = append(rows, uint64(i))
		}
	}
	return t.Select(rows)
}

// SelectWhere returns a new table restricted to the rows of column name for
// which pred is true. The column must exist with element type T; anything
// else is an error. Rows are evaluated and kept in original order.
func SelectWhere[T Scalar](t *Table, name string, pred func(row []T) bool) (*Table, error) {
	erased, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("select on %q: %w", name, ErrColumnNotFound)
	}
	col, ok := ColumnAs[T](erased)
	if !ok {
		return nil, fmt.Errorf("select on %q: %w: column is %s, requested %s",
			name, ErrTypeMismatch, erased.DType(), dtypeOf[T]())
	}

	var rows []uint64
	for i := uint64(0); i < col.RowCount(); i++ {
		if pred(col.Row(i)) {
			rows = append(rows, i)
		}
	}
	return t.Select(rows)
}

// Write exports the table to filePath under the table's configured group.
func (t *Table) Write(filePath string) error {
	return t.WriteGroup(filePath, t.group)
}

// WriteGroup exports the table to filePath under groupPath. The file and
// group are created when missing; metadata attributes are written first,
// then every column. A column of unsupported type is skipped with a
// warning; failure to create the file or group, or to write the metadata,
// is fatal. Write never mutates the table.
func (t *Table) WriteGroup(filePath, groupPath string) (err error) {
	f, err := hdf5.OpenReadWrite(filePath)
	if err != nil {
		f, err = hdf5.Create(filePath)
		if err != nil {
			return fmt.Errorf("creating file %s: %w", filePath, err)
		}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	g, err := TraverseOrCreateGroups(f, groupPath)
	if err != nil {
		return err
	}

	if len(t.experimentIDs) != len(t.identifiers) {
		t.logger.Warn("experiment ids and identifiers not correctly mapped",
			"ids", len(t.experimentIDs), "identifiers", len(t.identifiers))
	}

	if !slices.Contains(t.ColumnNames(), IDColumn) {
		t.logger.Warn("no 'id' column found; did you forget to add it?")
	}

	if err := WriteExperimentMetadata(g, t.experimentIDs, t.identifiers); err != nil {
		return err
	}

	for _, col := range t.columns {
		if err := writeColumn(g, col); err != nil {
			t.logger.Warn("skipping column", "column", col.Name(), "error", err)
		}
	}

	return nil
}
