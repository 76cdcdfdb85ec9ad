package template

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"messaging-core/internal/gateway"
	"messaging-core/internal/models"
)

const maxButtonTextLen = 25

// ValidationError names the component that blocks submission. Raised before
// any network call so a defective template never costs a remote round-trip.
type ValidationError struct {
	Component string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("template validation: %s: %s", e.Component, e.Reason)
}

// HandleResolver obtains a single-use remote handle for header media.
// Satisfied by *media.Uploader.
type HandleResolver interface {
	ObtainRemoteHandle(ctx context.Context, sourceURL, mimeType string) (string, error)
}

// Definition is the canonical internal component shape. Stored templates use
// one of two legacy JSON encodings; everything downstream of ParseDefinition
// is shape-agnostic.
type Definition struct {
	Header  *HeaderDef
	Body    string
	Footer  string
	Buttons []ButtonDef
}

type HeaderDef struct {
	Format string // TEXT, IMAGE, VIDEO, DOCUMENT
	Text   string
}

type ButtonDef struct {
	Type        string // URL, PHONE_NUMBER, QUICK_REPLY
	Text        string
	URL         string
	PhoneNumber string
}

type rawComponent struct {
	Type        string         `json:"type"`
	Format      string         `json:"format"`
	Text        string         `json:"text"`
	URL         string         `json:"url"`
	PhoneNumber string         `json:"phone_number"`
	Buttons     []rawComponent `json:"buttons"`
}

type keyedDefinition struct {
	Header  *rawComponent  `json:"header"`
	Body    *rawComponent  `json:"body"`
	Footer  *rawComponent  `json:"footer"`
	Buttons []rawComponent `json:"buttons"`
}

// ParseDefinition accepts the ordered-component list or the keyed-object
// encoding and normalizes both into one Definition.
func ParseDefinition(raw string) (*Definition, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &Definition{}, nil
	}

	def := &Definition{}

	if strings.HasPrefix(trimmed, "[") {
		var comps []rawComponent
		if err := json.Unmarshal([]byte(trimmed), &comps); err != nil {
			return nil, fmt.Errorf("parse component list: %w", err)
		}
		for _, comp := range comps {
			switch strings.ToUpper(comp.Type) {
			case "HEADER":
				def.Header = &HeaderDef{Format: normalizeFormat(comp.Format), Text: comp.Text}
			case "BODY":
				def.Body = comp.Text
			case "FOOTER":
				def.Footer = comp.Text
			case "BUTTONS":
				for _, b := range comp.Buttons {
					def.Buttons = append(def.Buttons, toButtonDef(b))
				}
			}
		}
		return def, nil
	}

	var keyed keyedDefinition
	if err := json.Unmarshal([]byte(trimmed), &keyed); err != nil {
		return nil, fmt.Errorf("parse component object: %w", err)
	}
	if keyed.Header != nil {
		def.Header = &HeaderDef{Format: normalizeFormat(keyed.Header.Format), Text: keyed.Header.Text}
	}
	if keyed.Body != nil {
		def.Body = keyed.Body.Text
	}
	if keyed.Footer != nil {
		def.Footer = keyed.Footer.Text
	}
	for _, b := range keyed.Buttons {
		def.Buttons = append(def.Buttons, toButtonDef(b))
	}
	return def, nil
}

func normalizeFormat(format string) string {
	if format == "" {
		return "TEXT"
	}
	return strings.ToUpper(format)
}

func toButtonDef(b rawComponent) ButtonDef {
	btnType := strings.ToUpper(b.Type)
	switch btnType {
	case "URL", "PHONE_NUMBER":
	default:
		btnType = "QUICK_REPLY"
	}
	return ButtonDef{Type: btnType, Text: b.Text, URL: b.URL, PhoneNumber: b.PhoneNumber}
}

// Compiler assembles the exact submission payload the platform expects from a
// stored template.
type Compiler struct {
	Handles HandleResolver
}

func NewCompiler(handles HandleResolver) *Compiler {
	return &Compiler{Handles: handles}
}

// Compile validates the stored definition and produces the component list for
// submission. All structural validation runs before any network call; the
// remote handle for a media header is requested only once the template is
// known to be well-formed.
func (c *Compiler) Compile(ctx context.Context, tpl *models.Template) ([]gateway.TemplateComponent, error) {
	def, err := ParseDefinition(tpl.Components)
	if err != nil {
		return nil, &ValidationError{Component: "DEFINITION", Reason: err.Error()}
	}

	if strings.TrimSpace(def.Body) == "" {
		return nil, &ValidationError{Component: "BODY", Reason: "body text is required"}
	}
	if def.Header != nil && def.Header.Format != "TEXT" && tpl.HeaderMediaURL == "" {
		return nil, &ValidationError{
			Component: "HEADER",
			Reason:    fmt.Sprintf("%s header requires stored media", def.Header.Format),
		}
	}
	for i, b := range def.Buttons {
		if utf8.RuneCountInString(b.Text) > maxButtonTextLen {
			return nil, &ValidationError{
				Component: fmt.Sprintf("BUTTONS[%d]", i),
				Reason:    fmt.Sprintf("button text %q exceeds %d characters", b.Text, maxButtonTextLen),
			}
		}
	}

	var components []gateway.TemplateComponent

	if def.Header != nil {
		header, err := c.compileHeader(ctx, def.Header, tpl.HeaderMediaURL)
		if err != nil {
			return nil, err
		}
		components = append(components, header)
	}

	bodyText, bodyExamples := Normalize(def.Body)
	body := gateway.TemplateComponent{Type: "BODY", Text: bodyText}
	if len(bodyExamples) > 0 {
		body.Example = &gateway.ComponentExample{BodyText: [][]string{bodyExamples}}
	}
	components = append(components, body)

	if def.Footer != "" {
		components = append(components, gateway.TemplateComponent{Type: "FOOTER", Text: def.Footer})
	}

	if len(def.Buttons) > 0 {
		buttons := gateway.TemplateComponent{Type: "BUTTONS"}
		for _, b := range def.Buttons {
			buttons.Buttons = append(buttons.Buttons, gateway.TemplateButton{
				Type:        b.Type,
				Text:        b.Text,
				URL:         b.URL,
				PhoneNumber: b.PhoneNumber,
			})
		}
		components = append(components, buttons)
	}

	return components, nil
}

func (c *Compiler) compileHeader(ctx context.Context, header *HeaderDef, mediaURL string) (gateway.TemplateComponent, error) {
	comp := gateway.TemplateComponent{Type: "HEADER", Format: header.Format}

	if header.Format == "TEXT" {
		text, examples := Normalize(header.Text)
		comp.Text = text
		if len(examples) > 0 {
			comp.Example = &gateway.ComponentExample{HeaderText: examples}
		}
		return comp, nil
	}

	// The platform cannot fetch arbitrary URLs for header previews, so the
	// media must be transferred up front and referenced by handle.
	handle, err := c.Handles.ObtainRemoteHandle(ctx, mediaURL, headerMIME(header.Format, mediaURL))
	if err != nil {
		return gateway.TemplateComponent{}, err
	}
	comp.Example = &gateway.ComponentExample{HeaderHandle: []string{handle}}
	return comp, nil
}

// headerMIME picks the declared MIME type for the upload session from the
// media URL's extension, constrained by the header format.
func headerMIME(format, mediaURL string) string {
	lower := strings.ToLower(mediaURL)
	switch format {
	case "IMAGE":
		if strings.HasSuffix(lower, ".png") {
			return "image/png"
		}
		return "image/jpeg"
	case "VIDEO":
		return "video/mp4"
	case "DOCUMENT":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
