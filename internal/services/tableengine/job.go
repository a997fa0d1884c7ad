package tableengine

import "sort"

// QueryJob is the handle returned by Engine.Query. Reading results through
// Rows or Columnar is what surfaces a seeded failure; the submission itself
// never fails.
type QueryJob struct {
	id   string
	sql  string
	rows []Row
	err  error
}

// ID returns the job identifier assigned at submission time.
func (j *QueryJob) ID() string { return j.id }

// Statement returns the submitted SQL text.
func (j *QueryJob) Statement() string { return j.sql }

// Rows returns the seeded result rows. A statement seeded with an error
// returns that error; a statement never seeded returns an empty slice.
func (j *QueryJob) Rows() ([]Row, error) {
	if j.err != nil {
		return nil, j.err
	}
	if j.rows == nil {
		return []Row{}, nil
	}
	out := make([]Row, len(j.rows))
	for i, row := range j.rows {
		copied := make(Row, len(row))
		for k, v := range row {
			copied[k] = v
		}
		out[i] = copied
	}
	return out, nil
}

// ColumnarResult is a column-oriented view of a query result.
type ColumnarResult struct {
	// Columns is the column order, sorted by name for determinism.
	Columns []string
	// Data maps each column to its values, one per row.
	Data map[string][]any
}

// Columnar returns the result pivoted into columns, for callers that want a
// frame-like shape rather than row maps. Failure semantics match Rows.
func (j *QueryJob) Columnar() (*ColumnarResult, error) {
	rows, err := j.Rows()
	if err != nil {
		return nil, err
	}

	columns := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			columns[k] = struct{}{}
		}
	}
	result := &ColumnarResult{
		Columns: make([]string, 0, len(columns)),
		Data:    make(map[string][]any, len(columns)),
	}
	for k := range columns {
		result.Columns = append(result.Columns, k)
	}
	sort.Strings(result.Columns)
	for _, col := range result.Columns {
		values := make([]any, len(rows))
		for i, row := range rows {
			values[i] = row[col]
		}
		result.Data[col] = values
	}
	return result, nil
}
