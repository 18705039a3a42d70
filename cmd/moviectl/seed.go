package main

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cinerate/movie"
	"cinerate/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMovieLensURL = "https://files.grouplens.org/datasets/movielens/ml-latest-small.zip"

var titleYearPattern = regexp.MustCompile(`^(.*?)\s*\((\d{4})[^)]*\)\s*$`)

// movieCreator is the part of the movie service the seed needs.
type movieCreator interface {
	Create(ctx context.Context, m movie.Movie) (movie.Movie, error)
}

type seedResult struct {
	Inserted int
	Existing int
	Unlinked int
	Invalid  int
}

func newSeedCmd(a *app) *cobra.Command {
	var (
		dir    string
		zipURL string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import the MovieLens catalogue, keyed by TMDB id",
		Long: `Reads movies.csv and links.csv from the MovieLens dataset and inserts every
title that has a TMDB id. Existing TMDB ids are left untouched. Seeded rows
have no sync time, so the next sync run fills in their TMDB metadata.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := a.log.Named("seed")
			if dir == "" {
				extracted, cleanup, err := downloadAndExtract(cmd.Context(), zipURL)
				if err != nil {
					return fmt.Errorf("download dataset: %w", err)
				}
				defer cleanup()
				dir = extracted
			}

			links, err := readLinksFile(filepath.Join(dir, "links.csv"))
			if err != nil {
				return err
			}
			moviesFile, err := os.Open(filepath.Join(dir, "movies.csv"))
			if err != nil {
				return err
			}
			defer moviesFile.Close()

			movies := movie.NewUsecase(postgres.NewMovieRepository(a.db), movie.WithLogger(zap.NewNop().Sugar()))
			res, err := seedMovies(cmd.Context(), movies, moviesFile, links, limit, log)
			log.Infow("seed finished",
				"inserted", res.Inserted,
				"existing", res.Existing,
				"unlinked", res.Unlinked,
				"invalid", res.Invalid,
			)
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory holding movies.csv and links.csv (skips the download)")
	cmd.Flags().StringVar(&zipURL, "url", defaultMovieLensURL, "MovieLens zip URL")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to read from movies.csv (0 = all)")
	return cmd
}

func seedMovies(ctx context.Context, store movieCreator, movies io.Reader, links map[int]int, limit int, log *zap.SugaredLogger) (seedResult, error) {
	var res seedResult
	reader := csv.NewReader(movies)
	reader.FieldsPerRecord = -1

	cols, err := readHeader(reader, "movieId", "title", "genres")
	if err != nil {
		return res, fmt.Errorf("movies.csv: %w", err)
	}

	for rows := 0; limit <= 0 || rows < limit; rows++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("movies.csv: %w", err)
		}

		m, movieLensID, ok := parseMovieRecord(record, cols)
		if !ok {
			res.Invalid++
			continue
		}
		tmdbID, ok := links[movieLensID]
		if !ok {
			res.Unlinked++
			continue
		}
		m.TMDBID = &tmdbID

		if _, err := store.Create(ctx, m); err != nil {
			if errors.Is(err, movie.ErrTMDBIDTaken) {
				res.Existing++
				continue
			}
			return res, fmt.Errorf("insert movieId %d: %w", movieLensID, err)
		}
		res.Inserted++
		if res.Inserted%1000 == 0 {
			log.Infow("seed progress", "inserted", res.Inserted)
		}
	}
	return res, nil
}

func readLinksFile(path string) (map[int]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLinks(f)
}

// readLinks maps MovieLens ids to TMDB ids. Rows without a TMDB id are skipped.
func readLinks(r io.Reader) (map[int]int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	cols, err := readHeader(reader, "movieId", "tmdbId")
	if err != nil {
		return nil, fmt.Errorf("links.csv: %w", err)
	}

	links := make(map[int]int)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return links, nil
		}
		if err != nil {
			return nil, fmt.Errorf("links.csv: %w", err)
		}
		movieLensID, err1 := strconv.Atoi(field(record, cols["movieId"]))
		tmdbID, err2 := strconv.Atoi(field(record, cols["tmdbId"]))
		if err1 != nil || err2 != nil || tmdbID <= 0 {
			continue
		}
		links[movieLensID] = tmdbID
	}
}

func readHeader(reader *csv.Reader, required ...string) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return cols, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseMovieRecord(record []string, cols map[string]int) (movie.Movie, int, bool) {
	movieLensID, err := strconv.Atoi(field(record, cols["movieId"]))
	if err != nil {
		return movie.Movie{}, 0, false
	}
	title, year := parseTitle(field(record, cols["title"]))
	if title == "" {
		return movie.Movie{}, 0, false
	}

	m := movie.Movie{
		Title:  title,
		Genres: parseGenres(field(record, cols["genres"])),
	}
	if year > 0 {
		d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		m.ReleaseDate = &d
	}
	return m, movieLensID, true
}

// parseTitle splits "Matrix, The (1999)" into "The Matrix" and 1999.
func parseTitle(raw string) (string, int) {
	title, year := strings.TrimSpace(raw), 0
	if match := titleYearPattern.FindStringSubmatch(title); match != nil {
		title = strings.TrimSpace(match[1])
		year, _ = strconv.Atoi(match[2])
	}
	for _, article := range []string{"The", "A", "An"} {
		suffix := ", " + article
		if strings.HasSuffix(title, suffix) {
			title = article + " " + strings.TrimSuffix(title, suffix)
			break
		}
	}
	return title, year
}

func parseGenres(raw string) []string {
	if raw == "" || raw == "(no genres listed)" {
		return nil
	}
	var genres []string
	for _, g := range strings.Split(raw, "|") {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}
	return genres
}

// downloadAndExtract fetches the MovieLens zip and unpacks movies.csv and links.csv into a temp dir.
func downloadAndExtract(ctx context.Context, zipURL string) (string, func(), error) {
	if zipURL == "" {
		return "", func() {}, errors.New("dataset url is empty")
	}

	tmpDir, err := os.MkdirTemp("", "movielens-")
	if err != nil {
		return "", func() {}, err
	}
	cleanup := func() {
		_ = os.RemoveAll(tmpDir)
	}

	zipPath := filepath.Join(tmpDir, "dataset.zip")
	if err := downloadFile(ctx, zipURL, zipPath); err != nil {
		cleanup()
		return "", func() {}, err
	}
	if err := extractFiles(zipPath, tmpDir, "movies.csv", "links.csv"); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return tmpDir, cleanup, nil
}

func downloadFile(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

func extractFiles(zipPath, destDir string, names ...string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = false
	}
	for _, file := range r.File {
		base := filepath.Base(file.Name)
		done, ok := wanted[base]
		if !ok || done {
			continue
		}
		if err := extractFile(file, filepath.Join(destDir, base)); err != nil {
			return err
		}
		wanted[base] = true
	}
	for name, found := range wanted {
		if !found {
			return fmt.Errorf("%s not found in zip", name)
		}
	}
	return nil
}

func extractFile(file *zip.File, dest string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
