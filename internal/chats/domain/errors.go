package domain

import "errors"

var (
	ErrNotFound = errors.New("chat not found")
	ErrExists   = errors.New("chat already exists")
)
