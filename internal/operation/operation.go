// Package operation defines the document conversion operations offered by the
// conversion service and the wire contract each one is bound to.
package operation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alkime/docvoice/pkg/collections"
)

// ResponseKind describes what a successful response body contains.
type ResponseKind int

const (
	// Audio responses carry a binary audio stream.
	Audio ResponseKind = iota + 1
	// Text responses carry a text/plain body.
	Text
)

func (k ResponseKind) String() string {
	switch k {
	case Audio:
		return "audio"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// Operation is one of the supported conversion modes.
type Operation int

const (
	// ToSpeech converts the whole document to speech.
	ToSpeech Operation = iota + 1
	// Summarize produces a plain-text summary.
	Summarize
	// SummarizeToSpeech summarizes the document and speaks the summary.
	SummarizeToSpeech
)

type binding struct {
	name     string
	label    string
	endpoint string
	kind     ResponseKind
	filename string
}

var bindings = map[Operation]binding{
	ToSpeech: {
		name:     "to-speech",
		label:    "Text-to-Speech",
		endpoint: "/api/v1/to-audio",
		kind:     Audio,
		filename: "speech.mp3",
	},
	Summarize: {
		name:     "summarize",
		label:    "Summarize (Text)",
		endpoint: "/api/v1/summarise",
		kind:     Text,
		filename: "summary.txt",
	},
	SummarizeToSpeech: {
		name:     "summarize-to-speech",
		label:    "Summarize + TTS",
		endpoint: "/api/v1/summarise-audio",
		kind:     Audio,
		filename: "summary.mp3",
	},
}

// All returns every operation in display order.
func All() []Operation {
	return []Operation{ToSpeech, Summarize, SummarizeToSpeech}
}

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	_, ok := bindings[o]
	return ok
}

// String returns the command-line name of the operation.
func (o Operation) String() string {
	if b, ok := bindings[o]; ok {
		return b.name
	}

	return fmt.Sprintf("operation(%d)", int(o))
}

// Label returns a human-readable name for menus.
func (o Operation) Label() string {
	return bindings[o].label
}

// Endpoint returns the service path the operation is posted to.
func (o Operation) Endpoint() string {
	return bindings[o].endpoint
}

// ResponseKind returns the kind of body a successful response carries.
func (o Operation) ResponseKind() ResponseKind {
	return bindings[o].kind
}

// DefaultFilename returns the filename offered when saving the result.
func (o Operation) DefaultFilename() string {
	return bindings[o].filename
}

// Parse maps a command-line name to an Operation.
func Parse(name string) (Operation, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, op := range All() {
		if bindings[op].name == name {
			return op, nil
		}
	}

	return 0, fmt.Errorf("unknown operation %q", name)
}

// Names returns the command-line names of all operations.
func Names() []string {
	return collections.Apply(All(), Operation.String)
}

// AcceptedExtensions lists the document extensions the service accepts.
// The list is advisory on the client side.
var AcceptedExtensions = []string{".pdf", ".docx", ".xml", ".txt"}

// Accepts reports whether the filename carries an accepted extension.
func Accepts(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, accepted := range AcceptedExtensions {
		if ext == accepted {
			return true
		}
	}

	return false
}
