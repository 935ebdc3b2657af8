// Package errors provides database error classification and handling utilities.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// DatabaseErrorType represents the type of database error.
type DatabaseErrorType int

const (
	// ErrorTypeUnknown represents an unknown database error.
	ErrorTypeUnknown DatabaseErrorType = iota
	// ErrorTypeDuplicateKey represents a duplicate key constraint violation (MySQL 1062).
	ErrorTypeDuplicateKey
	// ErrorTypeInvalidJSON represents an invalid JSON data error (MySQL 3140-3143).
	ErrorTypeInvalidJSON
	// ErrorTypeDataTooLong represents a data too long error (MySQL 1406).
	ErrorTypeDataTooLong
	// ErrorTypeNotFound represents a record not found error.
	ErrorTypeNotFound
	// ErrorTypeDeadlock represents a deadlock error (MySQL 1213).
	ErrorTypeDeadlock
	// ErrorTypeConnectionError represents a database connection error.
	ErrorTypeConnectionError
	// ErrorTypeInvalidValue represents an invalid value error.
	ErrorTypeInvalidValue
)

// DatabaseError wraps a database error with classification information.
type DatabaseError struct {
	Type         DatabaseErrorType
	OriginalErr  error
	MySQLErrCode uint16 // MySQL error code (e.g., 1062, 3140)
	Message      string
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if e.MySQLErrCode > 0 {
		return fmt.Sprintf("%s (MySQL error %d): %v", e.Message, e.MySQLErrCode, e.OriginalErr)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

// mysqlErrorClasses maps MySQL error numbers to their classification. The
// ticket and notification stores can produce all of these: duplicate ticket
// IDs, oversized descriptions, malformed analysis JSON, lock contention on
// the escalation sweep.
var mysqlErrorClasses = map[uint16]struct {
	errType DatabaseErrorType
	message string
}{
	1062: {ErrorTypeDuplicateKey, "duplicate key constraint violation"}, // ER_DUP_ENTRY
	1406: {ErrorTypeDataTooLong, "data too long for column"},            // ER_DATA_TOO_LONG
	1213: {ErrorTypeDeadlock, "deadlock detected"},                      // ER_LOCK_DEADLOCK
	1048: {ErrorTypeInvalidValue, "column cannot be null"},              // ER_BAD_NULL_ERROR
	1265: {ErrorTypeInvalidValue, "invalid or truncated value"},         // ER_WARN_DATA_TRUNCATED
	1366: {ErrorTypeInvalidValue, "invalid or truncated value"},         // ER_TRUNCATED_WRONG_VALUE
	3140: {ErrorTypeInvalidJSON, "invalid JSON data"},                   // invalid JSON text
	3141: {ErrorTypeInvalidJSON, "invalid JSON data"},                   // invalid JSON path
	3142: {ErrorTypeInvalidJSON, "invalid JSON data"},                   // JSON document too large
	3143: {ErrorTypeInvalidJSON, "invalid JSON data"},                   // invalid JSON type
}

// ClassifyDBError classifies a database error into a specific error type.
//
// It handles GORM errors and MySQL-specific errors:
//   - ErrRecordNotFound → ErrorTypeNotFound
//   - MySQL 1062 (Duplicate entry) → ErrorTypeDuplicateKey
//   - MySQL 3140-3143 (Invalid JSON) → ErrorTypeInvalidJSON
//   - MySQL 1406 (Data too long) → ErrorTypeDataTooLong
//   - MySQL 1213 (Deadlock) → ErrorTypeDeadlock
//   - Connection errors → ErrorTypeConnectionError
//
// Example:
//
//	err := repo.Create(ctx, ticket)
//	if err != nil {
//	    dbErr := errors.ClassifyDBError(err)
//	    switch dbErr.Type {
//	    case errors.ErrorTypeInvalidJSON:
//	        return kerrors.BadRequest("INVALID_ANALYSIS", "invalid analysis payload")
//	    case errors.ErrorTypeDataTooLong:
//	        return kerrors.BadRequest("DESCRIPTION_TOO_LONG", "description too long")
//	    default:
//	        return kerrors.InternalServer("DB_ERROR", "database error")
//	    }
//	}
func ClassifyDBError(err error) *DatabaseError {
	if err == nil {
		return nil
	}

	// Handle GORM ErrRecordNotFound
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &DatabaseError{
			Type:        ErrorTypeNotFound,
			OriginalErr: err,
			Message:     "record not found",
		}
	}

	// Try to extract MySQL error
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if class, ok := mysqlErrorClasses[mysqlErr.Number]; ok {
			return &DatabaseError{
				Type:         class.errType,
				OriginalErr:  err,
				MySQLErrCode: mysqlErr.Number,
				Message:      class.message,
			}
		}
		return &DatabaseError{
			Type:         ErrorTypeUnknown,
			OriginalErr:  err,
			MySQLErrCode: mysqlErr.Number,
			Message:      "MySQL error",
		}
	}

	// Check for connection errors (common patterns)
	if isConnectionError(err.Error()) {
		return &DatabaseError{
			Type:        ErrorTypeConnectionError,
			OriginalErr: err,
			Message:     "database connection error",
		}
	}

	// Unknown error type
	return &DatabaseError{
		Type:        ErrorTypeUnknown,
		OriginalErr: err,
		Message:     "unknown database error",
	}
}

// isConnectionError checks if the error message indicates a connection problem.
func isConnectionError(errMsg string) bool {
	connectionKeywords := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"connection lost",
		"can't connect",
		"dial tcp",
	}

	lower := strings.ToLower(errMsg)
	for _, keyword := range connectionKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// IsDuplicateKeyError checks if the error is a duplicate key constraint violation.
func IsDuplicateKeyError(err error) bool {
	dbErr := ClassifyDBError(err)
	return dbErr != nil && dbErr.Type == ErrorTypeDuplicateKey
}

// IsNotFoundError checks if the error is a record not found error.
func IsNotFoundError(err error) bool {
	dbErr := ClassifyDBError(err)
	return dbErr != nil && dbErr.Type == ErrorTypeNotFound
}

// IsInvalidJSONError checks if the error is an invalid JSON error.
func IsInvalidJSONError(err error) bool {
	dbErr := ClassifyDBError(err)
	return dbErr != nil && dbErr.Type == ErrorTypeInvalidJSON
}

// IsDeadlockError checks if the error is a deadlock error.
func IsDeadlockError(err error) bool {
	dbErr := ClassifyDBError(err)
	return dbErr != nil && dbErr.Type == ErrorTypeDeadlock
}
