package utils

import (
	"os"
	"path/filepath"
)

// FileExist reports whether filePath exists. Errors other than
// "not exist" are returned so callers can decide how to fail.
func FileExist(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func CreateDirIfNotExist(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0700)
	}

	return nil
}

// DataDirectory returns the directory vault keeps its data in:
// '$HOME/vault' normally, './dev' in dev mode.
func DataDirectory(devMode bool) (string, error) {
	folderName := "vault"
	rootDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if devMode {
		folderName = "dev"
		rootDir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}

	dir := filepath.Join(rootDir, folderName)
	if err := CreateDirIfNotExist(dir); err != nil {
		return "", err
	}

	return dir, nil
}
