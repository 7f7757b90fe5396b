// Package repository implements the auth store interfaces on MySQL.
// Missing rows surface as sql.ErrNoRows and duplicate-key violations as
// auth.ErrConflict so that the service layer never inspects driver
// error strings itself.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// duplicateKey reports whether err is a MySQL duplicate-entry violation
// (error 1062, typically the unique email or external id index).
func duplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(strings.ToLower(err.Error()), "1062")
}
