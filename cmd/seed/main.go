package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"bookenrich/internal/platform/logger"

	"github.com/goccy/go-json"
)

type sample struct {
	title  string
	author string
	isbn   string
}

var classics = []sample{
	{"Dune", "Frank Herbert", "9780441013593"},
	{"The Hobbit", "J.R.R. Tolkien", "9780547928227"},
	{"Pride and Prejudice", "Jane Austen", "9780141439518"},
	{"The Left Hand of Darkness", "Ursula K. Le Guin", "9780441478125"},
	{"Gone Girl", "Gillian Flynn", "9780307588371"},
	{"Sapiens", "Yuval Noah Harari", "9780062316097"},
	{"The Da Vinci Code", "Dan Brown", "9780307474278"},
	{"Steve Jobs", "Walter Isaacson", "9781451648539"},
	{"Good Omens", "Terry Pratchett and Neil Gaiman", "9780060853983"},
	{"The Lean Startup", "Eric Ries", "9780307887894"},
	{"Atomic Habits", "James Clear", "9780735211292"},
	{"Neuromancer", "William Gibson", "9780441569595"},
}

func main() {
	var (
		out   = flag.String("out", "data/books.json", "Where to write the sample catalog")
		count = flag.Int("count", 40, "Number of rows to generate")
		seed  = flag.Uint64("seed", 1, "Random seed")
	)
	flag.Parse()

	log := logger.Nop()
	if l, err := logger.New(os.Getenv("ENRICH_LOG_MODE")); err == nil {
		log = l
	}
	defer log.Sync()

	rows := generate(*count, rand.New(rand.NewPCG(*seed, *seed)))
	if err := write(*out, rows); err != nil {
		log.Error("failed to write sample catalog", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Info("sample catalog written", "path", *out, "rows", len(rows))
}

// generate mixes full rows, ISBN-only rows, text-only rows, rows using
// alternative key spellings and malformed rows with nothing usable.
func generate(count int, r *rand.Rand) []map[string]any {
	rows := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		b := classics[r.IntN(len(classics))]
		switch r.IntN(10) {
		case 0:
			rows = append(rows, map[string]any{"title": "", "author": " ", "isbn": ""})
		case 1, 2:
			rows = append(rows, map[string]any{"isbn": hyphenate(b.isbn)})
		case 3, 4:
			rows = append(rows, map[string]any{"title": b.title, "author": b.author})
		case 5:
			rows = append(rows, map[string]any{"book_title": b.title, "writer": b.author, "isbn_13": b.isbn})
		default:
			rows = append(rows, map[string]any{"Title": b.title, "Author": b.author, "ISBN": b.isbn})
		}
	}
	return rows
}

func hyphenate(isbn string) string {
	if len(isbn) != 13 {
		return isbn
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s", isbn[:3], isbn[3:4], isbn[4:7], isbn[7:12], isbn[12:])
}

func write(path string, rows []map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
