package connector

import "github.com/vitebski/mysql-library-manager/pkg/models"

// ResultSet is re-exported so callers of the session need not import models
type ResultSet = models.ResultSet

// QueryResultSet runs query on q and collects every row. Text columns come
// back from the driver as []byte and are converted to string.
func QueryResultSet(q Querier, query string, params ...interface{}) (*ResultSet, error) {
	rows, err := q.Query(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		for i, val := range values {
			if b, ok := val.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// QueryStrings runs a single-column query and returns its values as strings
func QueryStrings(q Querier, query string, params ...interface{}) ([]string, error) {
	rows, err := q.Query(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
