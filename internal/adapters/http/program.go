package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

//go:embed content/*.md
var contentFS embed.FS

// programModule is one unit of the certification program shown on the dashboard.
type programModule struct {
	Number  int
	Title   string
	Lessons int
	Hours   float64
	Body    template.HTML
}

// HoursLabel formats the study time, dropping a trailing ".0".
func (m programModule) HoursLabel() string {
	return strconv.FormatFloat(m.Hours, 'f', -1, 64) + " hours"
}

var programOutline = []struct {
	file    string
	title   string
	lessons int
	hours   float64
}{
	{"01-introduction.md", "Introduction to Medicare", 8, 2},
	{"02-parts-a-b.md", "Medicare Parts A & B", 12, 4},
	{"03-advantage.md", "Medicare Advantage (Part C)", 10, 3.5},
	{"04-part-d.md", "Prescription Drug Plans (Part D)", 9, 3},
	{"05-medigap.md", "Medigap & Supplements", 7, 2.5},
	{"06-enrollment-periods.md", "Enrollment Periods & SEPs", 6, 2},
}

// mdRenderer converts module notes. Raw HTML is escaped because WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// mdPolicy strips anything the renderer should never have produced.
var mdPolicy = bluemonday.UGCPolicy()

func loadProgram() ([]programModule, error) {
	modules := make([]programModule, 0, len(programOutline))
	for i, o := range programOutline {
		src, err := contentFS.ReadFile("content/" + o.file)
		if err != nil {
			return nil, fmt.Errorf("read program module %d: %w", i+1, err)
		}
		body, err := renderMarkdown(src)
		if err != nil {
			return nil, fmt.Errorf("render program module %d: %w", i+1, err)
		}
		modules = append(modules, programModule{
			Number:  i + 1,
			Title:   o.title,
			Lessons: o.lessons,
			Hours:   o.hours,
			Body:    body,
		})
	}
	return modules, nil
}

func renderMarkdown(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert(src, &buf); err != nil {
		return "", err
	}
	return template.HTML(mdPolicy.SanitizeBytes(buf.Bytes())), nil
}

// activeModule parses the module number from /program/N. Zero means none.
func activeModule(path string, count int) int {
	rest, ok := strings.CutPrefix(path, "/program/")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.Trim(rest, "/"))
	if err != nil || n < 1 || n > count {
		return 0
	}
	return n
}
