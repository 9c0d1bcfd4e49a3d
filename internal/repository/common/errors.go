package common

import (
	"errors"

	"github.com/lib/pq"
)

// Общие ошибки для всех репозиториев
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

// Коды ошибок PostgreSQL, которые репозитории переводят в доменные.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// IsUniqueViolation сообщает о нарушении UNIQUE ограничения.
func IsUniqueViolation(err error) bool {
	return hasPQCode(err, pqUniqueViolation)
}

// IsForeignKeyViolation сообщает о ссылке на несуществующую запись.
func IsForeignKeyViolation(err error) bool {
	return hasPQCode(err, pqForeignKeyViolation)
}

// IsCheckViolation сообщает о нарушении CHECK ограничения.
func IsCheckViolation(err error) bool {
	return hasPQCode(err, pqCheckViolation)
}

// ConstraintName возвращает имя нарушенного ограничения или "".
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

// MapWriteError переводит ошибки ограничений в ErrAlreadyExists / ErrInvalidInput.
func MapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err):
		return errors.Join(ErrAlreadyExists, err)
	case IsForeignKeyViolation(err), IsCheckViolation(err):
		return errors.Join(ErrInvalidInput, err)
	default:
		return err
	}
}

func hasPQCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
