package certgen

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"
)

// ToPageCoordinates maps a field position given in percent of the page (origin
// top-left, as laid out in the editor) to PDF user space (origin bottom-left).
func ToPageCoordinates(xPercent, yPercent, pageWidth, pageHeight float64) (float64, float64) {
	px := (xPercent / 100) * pageWidth
	py := pageHeight - (yPercent/100)*pageHeight
	return px, py
}

// toWinAnsi converts text to the cp1252 encoding used by the PDF core fonts.
// Runes outside cp1252 become '?'; ok reports whether the conversion was lossless.
func toWinAnsi(s string) (string, bool) {
	encoded, err := charmap.Windows1252.NewEncoder().String(s)
	if err == nil {
		return encoded, true
	}

	var b strings.Builder
	for _, r := range s {
		if c, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteByte(c)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String(), false
}

// getLogger returns the logger to use based on the configuration settings,
// defaulting to a text logger on os.Stdout if nil.
func getLogger(config Config) logrus.FieldLogger {
	if config.Logger != nil {
		return config.Logger
	}
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}
