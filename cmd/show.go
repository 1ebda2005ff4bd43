package cmd

import (
	"bytes"
	"fmt"
	"image"
	"image/color" // This is the standard library color package
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
	"golang.org/x/term"

	"github.com/arcanaland/autoanki/internal/anki"

	colorize "github.com/fatih/color" // Rename this import to avoid the conflict
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <package.apkg>",
	Short: "Display the decks, notes and media of an Anki package",
	Long: `Show reads an Anki package and prints its decks, notes (fields, tags and
the number of review cards each note generates) and media files.

With --art, raster media (PNG, JPEG, GIF) is rendered as ANSI terminal art.

Examples:
  autoanki show deck.apkg
  autoanki show --art --limit 5 deck.apkg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		// Check if path exists
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("package not found: %s", path)
		}

		contents, err := anki.ReadPackage(path)
		if err != nil {
			return fmt.Errorf("error loading package: %w", err)
		}

		art, _ := cmd.Flags().GetBool("art")
		limit, _ := cmd.Flags().GetInt("limit")

		out := cmd.OutOrStdout()
		width := terminalWidth()
		displayPackage(out, contents, width, limit)

		if art {
			for _, m := range contents.Media {
				img, _, err := image.Decode(bytes.NewReader(m.Data))
				if err != nil {
					log.Debug("skipping media that is not a raster image", "name", m.Name, "error", err)
					continue
				}
				displayMedia(out, m, img, width)
			}
		}

		return nil
	},
}

func init() {
	RootCmd.AddCommand(showCmd)

	showCmd.Flags().Bool("art", false, "Render raster media as ANSI art")
	showCmd.Flags().IntP("limit", "n", 0, "Show at most this many notes per deck (0 shows all)")
}

// terminalWidth returns the stdout width, 80 when it is not a terminal
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80 // Default if we can't get terminal width
	}
	return width
}

// displayPackage prints every deck with its notes, then the media list
func displayPackage(out io.Writer, c *anki.Contents, width, limit int) {
	label := func(s string) string { return colorize.CyanString("%-8s", s) }
	textWidth := max(width-12, 20)

	for _, d := range c.Decks {
		fmt.Fprintln(out)
		fmt.Fprintln(out, label("Deck:")+colorize.HiWhiteString("%s", d.Name)+colorize.HiBlackString(" (%d)", d.ID))

		shown := 0
		total := 0
		for _, n := range c.Notes {
			if n.DeckID != d.ID {
				continue
			}
			total++
			if limit > 0 && shown >= limit {
				continue
			}
			shown++

			m := c.Models[n.ModelID]
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  %s %s\n",
				colorize.HiWhiteString("Note %d", total),
				colorize.HiBlackString("· %s · %d card(s)", m.Name, n.Cards))

			for i, value := range n.Fields {
				name := fmt.Sprintf("Field %d", i+1)
				if i < len(m.Fields) {
					name = m.Fields[i]
				}
				lines := wrapText(anki.StripHTML(value), textWidth)
				fmt.Fprintf(out, "    %s%s\n", label(name+":"), lines[0])
				for _, line := range lines[1:] {
					fmt.Fprintf(out, "    %s%s\n", strings.Repeat(" ", 8), line)
				}
			}
			if len(n.Tags) > 0 {
				fmt.Fprintf(out, "    %s%s\n", label("Tags:"), colorize.GreenString("%s", strings.Join(n.Tags, " ")))
			}
		}

		if shown < total {
			fmt.Fprintln(out, colorize.HiBlackString("\n  ... %d more note(s)", total-shown))
		}
	}

	if len(c.Media) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, colorize.CyanString("Media:"))
		for _, m := range c.Media {
			fmt.Fprintf(out, "  %3d  %s %s\n", m.Index, m.Name, colorize.HiBlackString("(%d bytes)", len(m.Data)))
		}
	}
	fmt.Fprintln(out)
}

// displayMedia shows a media image as ANSI art with its details beside it
func displayMedia(out io.Writer, m anki.MediaFile, img image.Image, width int) {
	bounds := img.Bounds()
	artWidth := min(40, max((width-30)/2, 10))
	artHeight := 1
	if bounds.Dx() > 0 {
		// each character cell is roughly twice as tall as it is wide
		artHeight = max(artWidth*bounds.Dy()/bounds.Dx()/2, 1)
	}

	ansiArt, err := imageToAnsi(img, artWidth, artHeight, true)
	if err != nil {
		fmt.Fprintf(out, "error rendering %s: %v\n", m.Name, err)
		return
	}

	// Split the ANSI art into lines
	ansiLines := strings.Split(strings.TrimSuffix(ansiArt, "\n"), "\n")
	maxAnsiWidth := 0
	for _, line := range ansiLines {
		// Calculate the visible width (excluding ANSI escape sequences)
		visibleWidth := len([]rune(stripAnsi(line)))
		if visibleWidth > maxAnsiWidth {
			maxAnsiWidth = visibleWidth
		}
	}

	infoLines := []string{
		colorize.CyanString("Media: ") + colorize.HiWhiteString("%s", m.Name),
		colorize.CyanString("Index: ") + colorize.HiWhiteString("%d", m.Index),
		colorize.CyanString("Size:  ") + colorize.HiWhiteString("%dx%d px, %d bytes", bounds.Dx(), bounds.Dy(), len(m.Data)),
	}

	// We'll display the ANSI art on the left and info on the right
	spacing := 4
	infoStartCol := maxAnsiWidth + spacing

	fmt.Fprintln(out)

	maxLines := max(len(ansiLines), len(infoLines))
	for i := 0; i < maxLines; i++ {
		// Print 2-character wide left padding
		fmt.Fprint(out, "  ")
		// Print ANSI art line if available
		if i < len(ansiLines) {
			fmt.Fprint(out, ansiLines[i])
			// Pad to infoStartCol
			visibleWidth := len([]rune(stripAnsi(ansiLines[i])))
			fmt.Fprint(out, strings.Repeat(" ", infoStartCol-visibleWidth))
		} else {
			fmt.Fprint(out, strings.Repeat(" ", infoStartCol))
		}

		// Print info line if available
		if i < len(infoLines) {
			fmt.Fprint(out, infoLines[i])
		}

		fmt.Fprintln(out)
	}

	fmt.Fprintln(out)
}

// imageToAnsi converts an image to ANSI art
func imageToAnsi(img image.Image, width, height int, use256Colors bool) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid art size %dx%d", width, height)
	}

	// Resize image to desired dimensions (doubled for half-block characters)
	resized := resize.Resize(uint(width*2), uint(height*2), img, resize.Lanczos3)

	var buffer strings.Builder

	for y := 0; y < height*2; y += 2 {
		for x := 0; x < width*2; x += 2 {
			// Get the four pixels that will make up one character cell
			c1 := getColorAt(resized, x, y)
			c2 := getColorAt(resized, x+1, y)
			c3 := getColorAt(resized, x, y+1)
			c4 := getColorAt(resized, x+1, y+1)

			// Top pixels as foreground, bottom pixels as background
			col1, _ := colorful.MakeColor(c1)
			col2, _ := colorful.MakeColor(c2)
			col3, _ := colorful.MakeColor(c3)
			col4, _ := colorful.MakeColor(c4)

			upperHalfFg := averageColor(col1, col2)
			lowerHalfBg := averageColor(col3, col4)

			fg := colorfulToColor(upperHalfFg)
			bg := colorfulToColor(lowerHalfBg)

			buffer.WriteString(ansiColorString('▀', fg, bg, use256Colors))
		}
		buffer.WriteString("\n")
	}

	return buffer.String(), nil
}

// getColorAt returns the color at a specific coordinate
func getColorAt(img image.Image, x, y int) color.Color {
	bounds := img.Bounds()
	if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
		return img.At(x, y)
	}
	return color.RGBA{0, 0, 0, 255} // Return black for out-of-bounds
}

// averageColor calculates the average of multiple colors
func averageColor(colors ...colorful.Color) colorful.Color {
	var r, g, b float64
	for _, c := range colors {
		r += c.R
		g += c.G
		b += c.B
	}
	count := float64(len(colors))
	return colorful.Color{R: r / count, G: g / count, B: b / count}
}

// colorfulToColor converts a colorful.Color to a standard color.Color
func colorfulToColor(c colorful.Color) color.Color {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// ansiColorString formats a character with ANSI color codes
func ansiColorString(char rune, fg, bg color.Color, use256Colors bool) string {
	r1, g1, b1, _ := fg.RGBA()
	r2, g2, b2, _ := bg.RGBA()

	// RGBA() returns values in range 0-65535
	r1, g1, b1 = r1>>8, g1>>8, b1>>8
	r2, g2, b2 = r2>>8, g2>>8, b2>>8

	if use256Colors {
		return fmt.Sprintf("\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm%c\x1b[0m",
			r1, g1, b1, r2, g2, b2, char)
	}

	return string(char)
}

// wrapText wraps text to a specified width
func wrapText(text string, width int) []string {
	if width < 10 {
		width = 40 // Use a sensible default if width is too small
	}

	var result []string
	var currentLine string
	words := strings.Fields(text)

	if len(words) == 0 {
		return []string{""}
	}

	for _, word := range words {
		if len(currentLine) == 0 {
			// First word on the line, always add it
			currentLine = word
		} else if len([]rune(currentLine))+1+len([]rune(word)) <= width {
			currentLine += " " + word
		} else {
			result = append(result, currentLine)
			currentLine = word
		}
	}

	if currentLine != "" {
		result = append(result, currentLine)
	}

	return result
}

// stripAnsi removes ANSI escape sequences from a string
func stripAnsi(s string) string {
	var result strings.Builder
	inEscape := false
	for _, c := range s {
		if inEscape {
			if c == 'm' {
				inEscape = false
			}
		} else if c == '\033' {
			inEscape = true
		} else {
			result.WriteRune(c)
		}
	}
	return result.String()
}
