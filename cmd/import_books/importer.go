package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"library-portal/library"
	"library-portal/library/api"
	"library-portal/library/console"
	"library-portal/library/logger"
	"library-portal/library/portal"
)

// entry is one book in the manifest.
type entry struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Genre    string `json:"genre"`
	Language string `json:"language"`
	ISBN     string `json:"isbn"`
	Category string `json:"category"`
	Cover    string `json:"cover"`
}

type result struct {
	entry entry
	book  *library.Book
	err   error
}

type report struct {
	categoriesCreated []string
	results           []result
}

func (r *report) failed() int {
	n := 0
	for _, res := range r.results {
		if res.err != nil {
			n++
		}
	}
	return n
}

type importer struct {
	client   *api.Client
	baseDir  string
	parallel int
}

func (imp *importer) run(ctx context.Context, entries []entry) (*report, error) {
	rep := &report{results: make([]result, len(entries))}

	categories, err := imp.ensureCategories(ctx, entries, rep)
	if err != nil {
		return nil, err
	}

	var g errgroup.Group
	if imp.parallel > 0 {
		g.SetLimit(imp.parallel)
	}
	for i, e := range entries {
		g.Go(func() error {
			book, err := imp.create(ctx, e, categories)
			if err != nil {
				logger.Log.WithError(err).WithField("title", e.Title).Warn("import failed")
			}
			rep.results[i] = result{entry: e, book: book, err: err}
			return nil
		})
	}
	g.Wait()
	return rep, nil
}

// ensureCategories returns category ids by lower-cased name, creating the
// ones the manifest names that do not exist yet.
func (imp *importer) ensureCategories(ctx context.Context, entries []entry, rep *report) (map[string]int64, error) {
	existing, err := imp.client.Categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %s", api.ErrorMessage(err, err.Error()))
	}
	ids := make(map[string]int64, len(existing))
	for _, c := range existing {
		ids[strings.ToLower(c.Name)] = c.ID
	}
	for _, e := range entries {
		name := strings.TrimSpace(e.Category)
		if name == "" {
			continue
		}
		if _, ok := ids[strings.ToLower(name)]; ok {
			continue
		}
		c, err := imp.client.Categories.Create(ctx, api.CategoryForm{Name: name})
		if err != nil {
			return nil, fmt.Errorf("create category %q: %s", name, api.ErrorMessage(err, err.Error()))
		}
		ids[strings.ToLower(name)] = c.ID
		rep.categoriesCreated = append(rep.categoriesCreated, name)
	}
	return ids, nil
}

func (imp *importer) create(ctx context.Context, e entry, categories map[string]int64) (*library.Book, error) {
	form := api.BookForm{
		Title:    e.Title,
		Author:   e.Author,
		Genre:    e.Genre,
		Language: e.Language,
		ISBN:     e.ISBN,
		Status:   library.BookAvailable,
	}
	if id, ok := categories[strings.ToLower(strings.TrimSpace(e.Category))]; ok {
		form.CategoryID = strconv.FormatInt(id, 10)
	}

	if e.Cover != "" {
		url, err := imp.upload(ctx, e.Cover)
		if err != nil {
			return nil, err
		}
		form.ImageURL = url
	}

	book, err := imp.client.Books.Create(ctx, form)
	if err != nil {
		return nil, errors.New(api.ErrorMessage(err, err.Error()))
	}
	return book, nil
}

func (imp *importer) upload(ctx context.Context, cover string) (string, error) {
	path := cover
	if !filepath.IsAbs(path) {
		path = filepath.Join(imp.baseDir, path)
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("cover not accessible: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("cover not accessible: %w", err)
	}
	c := &portal.Cover{Name: filepath.Base(path), Size: info.Size(), Body: f}
	if err := c.Validate(); err != nil {
		return "", err
	}
	url, err := imp.client.Files.Upload(ctx, c.Name, c.Body)
	if err != nil {
		return "", fmt.Errorf("upload cover: %s", api.ErrorMessage(err, err.Error()))
	}
	return url, nil
}

func (r *report) print(w io.Writer) {
	for _, name := range r.categoriesCreated {
		fmt.Fprintf(w, "Created category: %s\n", name)
	}
	for _, res := range r.results {
		fmt.Fprintf(w, "Importing: %s by %s... ", res.entry.Title, res.entry.Author)
		if res.err != nil {
			fmt.Fprintf(w, "ERROR - %v\n", res.err)
			continue
		}
		fmt.Fprintf(w, "SUCCESS (ID: %d)\n", res.book.ID)
	}

	fmt.Fprintf(w, "\nImport complete!\n")
	fmt.Fprintf(w, "Successfully imported: %d books\n", len(r.results)-r.failed())
	fmt.Fprintf(w, "Errors: %d\n", r.failed())

	if len(r.results) > r.failed() {
		fmt.Fprintln(w, "\nImported books:")
		fmt.Fprintf(w, "%-5s %-50s %-30s\n", "ID", "Title", "Author")
		fmt.Fprintln(w, strings.Repeat("-", 87))
		for _, res := range r.results {
			if res.err != nil {
				continue
			}
			fmt.Fprintf(w, "%-5d %-50s %-30s\n", res.book.ID, console.Truncate(res.book.Title, 50), console.Truncate(res.book.Author, 30))
		}
	}
}
