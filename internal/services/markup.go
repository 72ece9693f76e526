package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"examflow/internal/config"
	"examflow/internal/models"
)

// CellToMarkup folds a cell's format flags into the inline markup convention
// the prompts consume. Application order is fixed: line breaks first, then
// bold, then italic, then underline, then quote escaping.
func CellToMarkup(cell models.FormattedCell, style config.UnderlineStyle) string {
	text := cell.Text
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\n", `\n`)

	if cell.Bold {
		text = "**" + text + "**"
	}
	if cell.Italic {
		text = "*" + text + "*"
	}
	if cell.Underline {
		switch style {
		case config.UnderlineSingle:
			text = "_" + text + "_"
		case config.UnderlineBraces:
			text = "{" + text + "}"
		default:
			text = "__" + text + "__"
		}
	}

	return strings.ReplaceAll(text, `"`, `\"`)
}

var firstNumber = regexp.MustCompile(`\d+`)

// sortItems orders enumerated source files. Numeric ordering compares the
// first run of digits in each name (so "Q2.png" sorts before "Q10.png");
// names without digits fall back to lexicographic comparison.
func sortItems(items []models.SourceItem, strategy config.SortStrategy) {
	if strategy == config.SortNumeric {
		sort.SliceStable(items, func(i, j int) bool {
			ni, iok := nameNumber(items[i].Name)
			nj, jok := nameNumber(items[j].Name)
			if iok && jok && ni != nj {
				return ni < nj
			}
			return items[i].Name < items[j].Name
		})
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
}

func nameNumber(name string) (int, bool) {
	m := firstNumber.FindString(name)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DecomposeLabel splits a classification label of the form
// "Passage Type: X | Question Type: Y | Question Difficulty: Z" into up to
// three sub-field values, tolerating missing segments and prefixes.
func DecomposeLabel(label string) []string {
	parts := strings.Split(label, "|")
	fields := make([]string, 0, 3)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if idx := strings.Index(p, ":"); idx >= 0 {
			p = strings.TrimSpace(p[idx+1:])
		}
		if p == "" {
			continue
		}
		fields = append(fields, p)
		if len(fields) == 3 {
			break
		}
	}
	return fields
}
