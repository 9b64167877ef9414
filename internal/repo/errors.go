package repo

import "errors"

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrConflict é retornado em violações de unicidade (ex.: email duplicado).
	ErrConflict = errors.New("registro duplicado")
)
