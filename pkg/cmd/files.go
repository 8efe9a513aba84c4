package cmd

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

const (
	publicFileMode  = 0644
	privateFileMode = 0600
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Returns a file system safe base name for a common name
func fileName(commonName string) string {
	name := strings.TrimSpace(commonName)
	if strings.HasPrefix(name, "*.") {
		name = "wildcard." + name[2:]
	}
	return unsafeFileChars.ReplaceAllString(name, "_")
}

func readFile(path string) ([]byte, error) {
	return afero.ReadFile(App.Fs, path)
}

// Writes the file, creating the parent directory if needed
func writeFile(path string, data []byte, perm os.FileMode) error {
	if err := App.Fs.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	return afero.WriteFile(App.Fs, path, data, perm)
}
