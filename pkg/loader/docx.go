package loader

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const documentPart = "word/document.xml"

func readDocx(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open docx %s: %w", path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != documentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s in %s: %w", documentPart, path, err)
		}
		defer rc.Close()
		return parseDocumentXML(rc)
	}

	return nil, fmt.Errorf("%s has no %s", path, documentPart)
}

// parseDocumentXML collects the text of every w:p directly under w:body, in
// order. Paragraphs in tables, text boxes and other containers are skipped.
// Runs are concatenated, w:tab becomes a tab and w:br/w:cr a newline. Tab
// stops and other run/paragraph properties are ignored.
func parseDocumentXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		stack      []string
		inPara     bool
		skip       int
		inText     bool
	)

	parent := func() string {
		if len(stack) == 0 {
			return ""
		}
		return stack[len(stack)-1]
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if name == "p" && parent() == "body" {
				inPara = true
				current.Reset()
			}
			stack = append(stack, name)
			if !inPara {
				continue
			}
			switch name {
			case "pPr", "rPr", "txbxContent":
				skip++
			case "t":
				inText = skip == 0
			case "tab":
				if skip == 0 {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if skip == 0 {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			name := t.Name.Local
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if !inPara {
				continue
			}
			switch name {
			case "p":
				if parent() == "body" {
					paragraphs = append(paragraphs, current.String())
					inPara = false
				}
			case "pPr", "rPr", "txbxContent":
				skip--
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}
