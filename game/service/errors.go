package service

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrWrongGame       = errors.New("operation not supported by this game")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
)
