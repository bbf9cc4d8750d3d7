package database

import (
	"database/sql"
	"fmt"
)

// requireAffected turns an exec that touched no rows into missing,
// so deletes and updates against absent rows fail loudly instead of
// no-opping.
func requireAffected(result sql.Result, execErr, missing error) error {
	if execErr != nil {
		return execErr
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return missing
	}
	return nil
}
