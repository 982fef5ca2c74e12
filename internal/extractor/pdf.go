// Package extractor turns BIK report PDFs into page text.
package extractor

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadable is returned when no method produced text that looks like a
// credit report.
var ErrUnreadable = errors.New("no readable text could be extracted from PDF")

// TextExtractor returns the text of each page of a document.
type TextExtractor interface {
	ExtractText(path string) ([]string, error)
}

// PDF extracts text with ledongthuc/pdf and falls back to the pdftotext
// command (poppler-utils) when the library output is unreadable.
type PDF struct {
	// DisablePdftotext skips the external command fallback.
	DisablePdftotext bool
}

var _ TextExtractor = PDF{}

// ExtractText implements TextExtractor.
func (p PDF) ExtractText(path string) ([]string, error) {
	pages, libErr := extractWithLibrary(path)
	if libErr == nil && isReadableText(pages) {
		return pages, nil
	}

	if !p.DisablePdftotext {
		popplerPages, popplerErr := extractWithPdftotext(path)
		if popplerErr == nil && isReadableText(popplerPages) {
			return popplerPages, nil
		}
	}

	if libErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, libErr)
	}
	return nil, fmt.Errorf("%w: the file may be scanned or use fonts without a text mapping", ErrUnreadable)
}

// ExtractText reads the PDF at path with the default extractor.
func ExtractText(path string) ([]string, error) {
	return PDF{}.ExtractText(path)
}

// JoinPages concatenates page texts the way the parsers expect them.
func JoinPages(pages []string) string {
	return strings.Join(pages, "\n")
}

// polishLetters are accepted as readable on top of ASCII.
const polishLetters = "ąćęłńóśźżĄĆĘŁŃÓŚŹŻ"

// textQuality returns the share of characters that are ASCII letters, digits,
// whitespace, common punctuation or Polish letters. unicode.IsLetter is too
// broad: garbage from identity-encoded fonts is full of accented letters.
func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)) {
				readable++
			} else if strings.ContainsRune(polishLetters, r) || r == '\u00a0' || r == '\u2013' || r == '\u2014' {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// reportWords appear in every BIK report. Text with none of them is treated
// as garbage.
var reportWords = []string{
	"bik", "raport", "kredyt", "zobowiąz", "pesel", "pln",
	"rata", "bank", "zapyta", "spłat", "umowa", "limit",
}

func containsReportWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range reportWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// isReadableText requires more than 50 characters, more than 60% readable
// characters and at least one report word.
func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= 50 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsReportWords(pages)
}

// IsReadableText reports whether pages look like extracted report text.
func IsReadableText(pages []string) bool {
	return isReadableText(pages)
}

func extractWithPdftotext(path string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	numPages := 1
	if out, err := exec.Command("pdfinfo", path).Output(); err == nil {
		numPages = pageCount(string(out))
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		n := strconv.Itoa(i)
		out, err := exec.Command("pdftotext", "-layout", "-enc", "UTF-8", "-f", n, "-l", n, path, "-").Output()
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(string(out)); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) > 0 {
		return pages, nil
	}

	out, err := exec.Command("pdftotext", "-layout", "-enc", "UTF-8", path, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return []string{text}, nil
}

// pageCount reads "Pages: N" from pdfinfo output, defaulting to 1.
func pageCount(info string) int {
	for _, line := range strings.Split(info, "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err == nil && n > 0 {
			return n
		}
	}
	return 1
}

// extractWithLibrary tries the library's extraction paths in order of layout
// fidelity and returns the first readable result.
func extractWithLibrary(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	pages = extractByRow(r, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	pages = extractByContent(r, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	if plain := extractByReaderPlainText(r); isReadableText([]string{plain}) {
		return []string{plain}, nil
	}
	return pages, nil
}

func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				words = append(words, word.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

type textItem struct {
	x float64
	s string
}

// extractByContent groups text objects into rows by rounded Y and orders each
// row by X. Column gaps wider than columnGap become a double space so the
// table parsers still see separate cells.
func extractByContent(r *pdf.Reader, numPages int) []string {
	const columnGap = 15

	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		rows := make(map[int][]textItem)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			y := int(math.Round(t.Y))
			rows[y] = append(rows[y], textItem{x: t.X, s: t.S})
		}

		ys := make([]int, 0, len(rows))
		for y := range rows {
			ys = append(ys, y)
		}
		// PDF Y grows upwards.
		sort.Sort(sort.Reverse(sort.IntSlice(ys)))

		var lines []string
		for _, y := range ys {
			if line := joinRow(rows[y], columnGap); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func joinRow(items []textItem, gap float64) string {
	sort.Slice(items, func(a, b int) bool { return items[a].x < items[b].x })

	var b strings.Builder
	for j, item := range items {
		if j > 0 && item.x-items[j-1].x > gap {
			b.WriteString("  ")
		}
		b.WriteString(item.s)
	}
	return strings.TrimSpace(b.String())
}

func extractByReaderPlainText(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
