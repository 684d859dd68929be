package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	indentPrefix    = "    "
	entryPrefix     = "├── "
	lastEntryPrefix = "└── "
	verticalLine    = "│   "
)

// WriteTreeReport walks the retrieved document tree rooted at targetDir and
// writes a text rendering of it to outputFilePath, so a run's layout can be
// reviewed without listing directories by hand.
func WriteTreeReport(targetDir, outputFilePath string, log *logrus.Entry) error {
	if _, err := os.Stat(targetDir); err != nil {
		return fmt.Errorf("checking target directory '%s': %w", targetDir, err)
	}

	file, err := os.Create(outputFilePath)
	if err != nil {
		return fmt.Errorf("creating report file '%s': %w", outputFilePath, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	if _, err := fmt.Fprintf(writer, "Retrieved documents under: %s\n\n", targetDir); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, "%s/\n", filepath.Base(targetDir)); err != nil {
		return err
	}

	if err := walkDirRecursive(writer, targetDir, "", log); err != nil {
		return fmt.Errorf("generating tree for '%s': %w", targetDir, err)
	}
	return nil
}

// walkDirRecursive writes one directory level and recurses into subdirectories
func walkDirRecursive(writer io.Writer, dirPath string, currentIndent string, log *logrus.Entry) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		log.Warnf("Failed to read directory '%s': %v", dirPath, err)
		return err
	}

	// Directories first, then alphabetical
	slices.SortFunc(entries, func(a, b os.DirEntry) int {
		if a.IsDir() != b.IsDir() {
			if a.IsDir() {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name(), b.Name())
	})

	for i, entry := range entries {
		connector := entryPrefix
		childIndent := currentIndent + verticalLine
		if i == len(entries)-1 {
			connector = lastEntryPrefix
			childIndent = currentIndent + indentPrefix
		}

		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		if _, err := fmt.Fprintf(writer, "%s%s%s\n", currentIndent, connector, name); err != nil {
			return err
		}

		if entry.IsDir() {
			if err := walkDirRecursive(writer, filepath.Join(dirPath, entry.Name()), childIndent, log); err != nil {
				return err
			}
		}
	}
	return nil
}
