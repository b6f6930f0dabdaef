package profile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/vecrec/internal/domain/aspect"
)

// Each template receives the rendered title header and synopsis.
var templates = [aspect.Count]string{
	"Central themes and ideas of %s. %s",
	"Overall mood and atmosphere of %s. %s",
	"Pacing and narrative rhythm of %s. %s",
	"Tone and attitude of %s, serious or light, dark or warm. %s",
	"Visual style, cinematography and setting of %s. %s",
	"Intellectual and emotional depth of %s. %s",
	"Suspense, conflict and tension in %s. %s",
	"Emotions the audience feels watching %s. %s",
	"Intended audience of %s. %s",
	"Viewing experience %s delivers. %s",
}

// Prompts renders the ten aspect prompts of a title in canonical slot order.
// Whitespace inside every prompt is collapsed to single spaces and trimmed.
func Prompts(m TitleMeta) [aspect.Count]string {
	header := titleHeader(m)

	var out [aspect.Count]string
	for i, tpl := range templates {
		out[i] = collapse(fmt.Sprintf(tpl, header, m.Synopsis))
	}
	return out
}

// titleHeader renders "Name (Year), genres: a, b".
func titleHeader(m TitleMeta) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(m.Name))
	if m.Year != nil {
		b.WriteString(" (")
		b.WriteString(strconv.Itoa(*m.Year))
		b.WriteString(")")
	}

	genres := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}
	if len(genres) > 0 {
		b.WriteString(", genres: ")
		b.WriteString(strings.Join(genres, ", "))
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
