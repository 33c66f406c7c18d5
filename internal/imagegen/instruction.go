package imagegen

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"tryon/internal/domain"
)

// ColorPlaceholder marks where the chosen color is substituted.
const ColorPlaceholder = "{color}"

// DefaultInstructionTemplate asks for a constrained in-painting edit: one
// crochet bandana added to the person in image 2, nothing else touched.
const DefaultInstructionTemplate = `Perform a strict in-painting operation on the provided photograph of the person (image 2).
  - BASE IMAGE CONSTRAINT: The original image of the person is the immutable base layer. Their facial features, identity, skin texture, hair color/style, clothing, and the background MUST NOT BE ALTERED.
  - PRIMARY TASK: Generate a single handmade crochet bandana (using stitch pattern from image 1, color {color}) and layer it realistically onto the head.
  - PLACEMENT RULES: The bandana sits on the crown of the head, further back from the forehead. The front section of hair and the natural part must remain visible *in front* of the bandana.
  - INTEGRATION: The crochet fabric should appear to sit upon and slightly compress the hair underneath it. Only generate the pixels necessary for the bandana itself and the immediate shadows it casts on the hair.
  - NEGATIVE CONSTRAINT: Do not regenerate the face. Do not add anything to the neck or collar area.`

var errMissingPlaceholder = errors.New("imagegen: instruction template must contain " + ColorPlaceholder)

// InstructionTemplate is fixed text parameterized only by the color token.
type InstructionTemplate struct {
	text string
}

// NewInstructionTemplate validates text. An empty text selects the default.
func NewInstructionTemplate(text string) (InstructionTemplate, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultInstructionTemplate
	}
	if !strings.Contains(text, ColorPlaceholder) {
		return InstructionTemplate{}, errMissingPlaceholder
	}
	return InstructionTemplate{text: text}, nil
}

// LoadInstructionTemplate reads a template from path, falling back to the
// default when path is empty.
func LoadInstructionTemplate(path string) (InstructionTemplate, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return NewInstructionTemplate("")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return InstructionTemplate{}, fmt.Errorf("read instruction template: %w", err)
	}
	return NewInstructionTemplate(string(raw))
}

// Render substitutes the color. Only palette tokens reach this point, so no
// visitor-supplied free text ends up in the instruction.
func (t InstructionTemplate) Render(c domain.Color) string {
	text := t.text
	if text == "" {
		text = DefaultInstructionTemplate
	}
	return strings.ReplaceAll(text, ColorPlaceholder, string(c))
}
