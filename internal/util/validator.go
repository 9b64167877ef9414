package util

import (
	"errors"
	"net/mail"
	"strings"
)

// ValidateEmail retorna erro para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email obrigatório")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("email inválido")
	}
	return nil
}

// ValidatePassword verifica requisitos mínimos de senha.
func ValidatePassword(password string) error {
	password = strings.TrimSpace(password)
	if len(password) < 8 {
		return errors.New("senha deve ter pelo menos 8 caracteres")
	}
	if len(password) > 128 {
		return errors.New("senha deve ter no máximo 128 caracteres")
	}
	return nil
}
