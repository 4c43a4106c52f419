package sqlite

import (
	"database/sql/driver"
	"strings"

	sqlitedriver "modernc.org/sqlite"
)

// foldFunc lowercases text with Unicode case mapping; SQLite's LOWER only folds ASCII.
const foldFunc = "clacks_fold"

func init() {
	if err := sqlitedriver.RegisterDeterministicScalarFunction(foldFunc, 1, fold); err != nil {
		panic(err)
	}
}

func fold(_ *sqlitedriver.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}
