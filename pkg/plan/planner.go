package plan

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"records-scraper/pkg/models"
	"records-scraper/pkg/utils"
)

// Plan maps discovered links onto retrieval tasks with deterministic,
// collision-free destination paths under rootDir. Pure computation: no
// directories are created here; the scheduler creates them lazily on first
// write.
//
// Filenames colliding within a (year, category) scope get an incrementing
// "_2", "_3"... suffix in input order, so the same link set always produces
// the same paths and nothing is silently overwritten.
func Plan(links []models.DocumentLink, rootDir string) []*models.RetrievalTask {
	tasks := make([]*models.RetrievalTask, 0, len(links))
	taken := make(map[string]bool, len(links))

	for _, link := range links {
		year := strconv.Itoa(link.Year)
		category := utils.SanitizeFilename(link.Category)
		filename := utils.SanitizeFilename(link.Filename)

		dest := filepath.Join(rootDir, year, category, disambiguate(taken, filepath.Join(rootDir, year, category), filename))
		taken[dest] = true

		tasks = append(tasks, &models.RetrievalTask{
			Link:     link,
			DestPath: dest,
			Status:   models.StatusPending,
		})
	}
	return tasks
}

// disambiguate returns filename, or the first "name_N.ext" variant not yet
// taken under dir.
func disambiguate(taken map[string]bool, dir, filename string) string {
	if !taken[filepath.Join(dir, filename)] {
		return filename
	}
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if !taken[filepath.Join(dir, candidate)] {
			return candidate
		}
	}
}
