package definition

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseYAML reads the YAML form of a definition:
//
//	machine: SendStream
//	states: [Ready, Send, DataSent]
//	events:
//	  - name: on_send_stream
//	    doc: The application sent a frame.
//	    clauses:
//	      - from: [Ready]
//	        to: Send
//	predicates:
//	  - name: terminal
//	    states: [DataSent]
//
// Unknown keys are rejected.
func ParseYAML(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("definition: yaml: empty document")
		}

		return nil, fmt.Errorf("definition: yaml: %w", err)
	}

	if doc.Machine == "" {
		return nil, errors.New("definition: yaml: missing machine")
	}

	return &doc, nil
}

// YAML renders the document in the form accepted by ParseYAML.
func (d *Document) YAML() ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("definition: yaml: %w", err)
	}

	return out, nil
}
