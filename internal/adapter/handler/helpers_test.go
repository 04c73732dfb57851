package handler

import (
	"os"
	"path/filepath"

	infra "github.com/zots0127/filedrop/internal/infrastructure/repository"
)

func writeStoreFile(store *infra.LocalFileStore, name, content string) error {
	return os.WriteFile(filepath.Join(store.BasePath(), name), []byte(content), 0644)
}
