package models

import (
	"errors"
	"fmt"
	"strings"
)

// AttireChoice selects how the person's clothing is treated in the composite.
type AttireChoice string

const (
	AttireKeepOriginal   AttireChoice = "keep_original"
	AttireBiblicalEra    AttireChoice = "biblical_era_clothing"
	AttireModernCasual   AttireChoice = "modern_casual"
	AttireFormalWorkwear AttireChoice = "formal_workwear"
)

// StyleChoice selects the rendering style of the composite.
type StyleChoice string

const (
	StyleCinematic    StyleChoice = "cinematic_realistic"
	StyleOilPainting  StyleChoice = "oil_painting"
	StyleIllustration StyleChoice = "soft_illustration"
	StyleVintageFilm  StyleChoice = "vintage_film"
)

// Option is a selectable value with a human label, used by the options listing.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type attireEntry struct {
	choice AttireChoice
	label  string
}

type styleEntry struct {
	choice StyleChoice
	label  string
	prompt string
}

var attireTable = []attireEntry{
	{AttireKeepOriginal, "Keep the clothing from my photo"},
	{AttireBiblicalEra, "Robes and linen of the figure's era"},
	{AttireModernCasual, "Modern casual wear"},
	{AttireFormalWorkwear, "Formal workwear or suit"},
}

var styleTable = []styleEntry{
	{StyleCinematic, "Cinematic Realistic", "highly detailed, photorealistic, cinematic lighting, 8k resolution"},
	{StyleOilPainting, "Oil Painting", "oil painting style, brush strokes, classical art"},
	{StyleIllustration, "Soft Illustration", "digital illustration, soft lighting, warm colors"},
	{StyleVintageFilm, "Vintage Film", "vintage film photography, grain, warm nostalgia"},
}

// ParseAttire resolves a user supplied attire value. Empty input selects the first entry.
func ParseAttire(raw string) (AttireChoice, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return attireTable[0].choice, nil
	}
	for _, entry := range attireTable {
		if string(entry.choice) == value {
			return entry.choice, nil
		}
	}
	return "", fmt.Errorf("unknown attire %q", raw)
}

// ParseStyle resolves a user supplied style value. Empty input selects the first entry.
func ParseStyle(raw string) (StyleChoice, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return styleTable[0].choice, nil
	}
	for _, entry := range styleTable {
		if string(entry.choice) == value {
			return entry.choice, nil
		}
	}
	return "", fmt.Errorf("unknown style %q", raw)
}

// OrDefault maps the zero value to the first table entry.
func (a AttireChoice) OrDefault() AttireChoice {
	if a == "" {
		return attireTable[0].choice
	}
	return a
}

// Valid reports whether the attire value is one of the known choices.
func (a AttireChoice) Valid() bool {
	for _, entry := range attireTable {
		if entry.choice == a {
			return true
		}
	}
	return false
}

// Label returns the display label of the attire choice.
func (a AttireChoice) Label() string {
	for _, entry := range attireTable {
		if entry.choice == a {
			return entry.label
		}
	}
	return string(a)
}

// Clause returns the clothing instruction inserted into prompts.
func (a AttireChoice) Clause(subject string) string {
	switch a {
	case AttireKeepOriginal:
		return "Keep the person's original clothing from the input image."
	case AttireModernCasual:
		return "Change the person's clothing to modern casual wear."
	case AttireFormalWorkwear:
		return "Change the person's clothing to formal workwear or a suit."
	default:
		return fmt.Sprintf("Change the person's clothing to match the biblical era of %s.", subject)
	}
}

// OrDefault maps the zero value to the first table entry.
func (s StyleChoice) OrDefault() StyleChoice {
	if s == "" {
		return styleTable[0].choice
	}
	return s
}

// Valid reports whether the style value is one of the known choices.
func (s StyleChoice) Valid() bool {
	for _, entry := range styleTable {
		if entry.choice == s {
			return true
		}
	}
	return false
}

// Label returns the display label of the style choice.
func (s StyleChoice) Label() string {
	for _, entry := range styleTable {
		if entry.choice == s {
			return entry.label
		}
	}
	return string(s)
}

// Prompt returns the style fragment inserted into prompts.
func (s StyleChoice) Prompt() string {
	for _, entry := range styleTable {
		if entry.choice == s {
			return entry.prompt
		}
	}
	return styleTable[0].prompt
}

// AttireOptions lists the attire table in display order.
func AttireOptions() []Option {
	out := make([]Option, 0, len(attireTable))
	for _, entry := range attireTable {
		out = append(out, Option{Value: string(entry.choice), Label: entry.label})
	}
	return out
}

// StyleOptions lists the style table in display order.
func StyleOptions() []Option {
	out := make([]Option, 0, len(styleTable))
	for _, entry := range styleTable {
		out = append(out, Option{Value: string(entry.choice), Label: entry.label})
	}
	return out
}

var (
	ErrMissingImage   = errors.New("source image is required")
	ErrMissingSubject = errors.New("subject description is required")
	ErrImageTooLarge  = errors.New("source image exceeds the upload limit")
	ErrNotAnImage     = errors.New("source image must be an image/* payload")
)

// GenerationRequest is the immutable input of one orchestration call.
type GenerationRequest struct {
	SourceImage        []byte
	MIMEType           string
	SubjectDescription string
	Attire             AttireChoice
	Style              StyleChoice
	AspectRatio        string
}

// Image wraps the source photo for provider adapters.
func (r GenerationRequest) Image() ImageInput {
	return ImageInput{Data: r.SourceImage, ContentType: r.MIMEType}
}

// Subject returns the trimmed subject description.
func (r GenerationRequest) Subject() string {
	return strings.TrimSpace(r.SubjectDescription)
}

// Validate rejects malformed input. maxBytes <= 0 disables the size check.
// Empty attire and style are accepted and resolve to their defaults.
func (r GenerationRequest) Validate(maxBytes int64) error {
	if len(r.SourceImage) == 0 {
		return ErrMissingImage
	}
	if r.Subject() == "" {
		return ErrMissingSubject
	}
	if maxBytes > 0 && int64(len(r.SourceImage)) > maxBytes {
		return fmt.Errorf("%w (%d bytes > %d)", ErrImageTooLarge, len(r.SourceImage), maxBytes)
	}
	if !IsImageType(r.Image().MIMEType()) {
		return ErrNotAnImage
	}
	if !r.Attire.OrDefault().Valid() {
		return fmt.Errorf("unknown attire %q", r.Attire)
	}
	if !r.Style.OrDefault().Valid() {
		return fmt.Errorf("unknown style %q", r.Style)
	}
	return nil
}
