package storage

import (
	"fmt"

	"github.com/novacode/novacode-backend/internal/apperr"
)

func errNotFound(objectPath string) error {
	return apperr.NotFound("storage.get", "File not found", fmt.Errorf("%w: %s", ErrObjectNotFound, objectPath))
}

func errExists(objectPath string) error {
	return apperr.Conflict("storage.put", "File already exists", fmt.Errorf("%w: %s", ErrObjectExists, objectPath))
}

func errUpload(err error) error {
	return apperr.Upstream("storage.put", "Error uploading file.", err)
}

func errRead(op string, err error) error {
	return apperr.Upstream(op, "Error fetching file", err)
}
