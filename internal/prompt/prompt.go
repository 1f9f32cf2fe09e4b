// Package prompt renders the provider prompts and export names for a composition.
package prompt

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ncecere/holy_coop/backend/internal/models"
)

// ForImage builds the prompt sent alongside the inline photo.
func ForImage(req models.GenerationRequest) string {
	subject := req.Subject()
	attire, style := req.Attire.OrDefault(), req.Style.OrDefault()
	var b strings.Builder
	b.WriteString("[Direct Image Generation Request]\n")
	b.WriteString("Input Image: Provided.\n")
	fmt.Fprintf(&b, "Task: Generate a high-quality image of the person in the input photo standing next to %s.\n", subject)
	fmt.Fprintf(&b, "Style: %s.\n", style.Prompt())
	fmt.Fprintf(&b, "Clothing: %s\n", attire.Clause(subject))
	if ratio := strings.TrimSpace(req.AspectRatio); ratio != "" {
		fmt.Fprintf(&b, "Aspect ratio: %s.\n", ratio)
	}
	b.WriteString("Important: Maintain the user's face fidelity.")
	return b.String()
}

// ForText builds a descriptive prompt for providers that cannot take the photo.
func ForText(req models.GenerationRequest) string {
	subject := req.Subject()
	attire, style := req.Attire.OrDefault(), req.Style.OrDefault()
	var b strings.Builder
	fmt.Fprintf(&b, "A high-quality image of a person standing next to %s, both clearly visible and facing the viewer.\n", subject)
	fmt.Fprintf(&b, "Style: %s.\n", style.Prompt())
	clothing := attire.Clause(subject)
	if attire == models.AttireKeepOriginal {
		clothing = "The person wears everyday contemporary clothing."
	}
	fmt.Fprintf(&b, "Clothing: %s", clothing)
	if ratio := strings.TrimSpace(req.AspectRatio); ratio != "" {
		fmt.Fprintf(&b, "\nAspect ratio: %s.", ratio)
	}
	return b.String()
}

// ExportFilename names a downloaded composite, e.g. HolyCoop_Moses_1700000000000.jpg.
func ExportFilename(subject string, at time.Time) string {
	return fmt.Sprintf("HolyCoop_%s_%d.jpg", sanitize(subject), at.UnixMilli())
}

func sanitize(subject string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(subject) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "composite"
	}
	return out
}
