package output

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vburojevic/eruption-sensor/internal/domain"
)

var (
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle = lipgloss.NewStyle().Bold(true)
	classStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

// TextWriter prints focus records for humans.
type TextWriter struct {
	w     io.Writer
	color bool
}

// NewTextWriter creates a text writer. Colors are used only when color
// is true.
func NewTextWriter(w io.Writer, color bool) *TextWriter {
	return &TextWriter{w: w, color: color}
}

// Write prints one record as "15:04:05.000 title [class]".
func (t *TextWriter) Write(event domain.FocusEvent, sequence int, at time.Time) error {
	stamp := at.Local().Format("15:04:05.000")
	title := event.WindowTitle
	class := "[" + event.WindowClass + "]"
	if event.Empty() {
		title, class = "(nothing focused)", ""
	}

	if t.color {
		stamp = timeStyle.Render(stamp)
		if event.Empty() {
			title = emptyStyle.Render(title)
		} else {
			title = titleStyle.Render(title)
			class = classStyle.Render(class)
		}
	}

	if class == "" {
		_, err := fmt.Fprintf(t.w, "%s %s\n", stamp, title)
		return err
	}
	_, err := fmt.Fprintf(t.w, "%s %s %s\n", stamp, title, class)
	return err
}
