// Package ctest decodes CTest dashboard XML (test-results.xml) into the
// site/testing/test tree the structured result parser consumes.
package ctest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyDocument is returned when the input contains no XML elements.
var ErrEmptyDocument = errors.New("empty test report")

// Report is the root <Site> element.
type Report struct {
	XMLName xml.Name `xml:"site"`
	Name    string   `xml:"name,attr"`
	Testing Testing  `xml:"testing"`
}

// Testing represents the <Testing> element.
type Testing struct {
	StartDateTime string `xml:"startdatetime"`
	Tests         []Test `xml:"test"`
}

// Test represents a <Test> element. CTest writes the status as an attribute;
// some converters emit it as a child element, both are accepted.
type Test struct {
	StatusAttr string  `xml:"status,attr"`
	StatusElem string  `xml:"status"`
	Name       string  `xml:"name"`
	Path       string  `xml:"path"`
	FullName   string  `xml:"fullname"`
	Command    string  `xml:"fullcommandline"`
	Results    Results `xml:"results"`
}

// Results holds the named measurements of a test.
type Results struct {
	NamedMeasurements []NamedMeasurement `xml:"namedmeasurement"`
	Measurement       Measurement        `xml:"measurement"`
}

// NamedMeasurement represents a <NamedMeasurement> element.
type NamedMeasurement struct {
	Name  string `xml:"name,attr"`
	Type  string `xml:"type,attr"`
	Value string `xml:"value"`
}

// Measurement holds the captured test output.
type Measurement struct {
	Value string `xml:"value"`
}

// Status returns the test status, preferring the attribute form.
func (t Test) Status() string {
	if t.StatusAttr != "" {
		return t.StatusAttr
	}
	return strings.TrimSpace(t.StatusElem)
}

// Decode parses CTest XML. Tag and attribute names are lower-cased before
// decoding so that <Site>, <site> and <SITE> all map onto Report.
func Decode(data []byte) (*Report, error) {
	normalized, err := normalizeNames(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse test report XML: %w", err)
	}

	var report Report
	if err := xml.Unmarshal(normalized, &report); err != nil {
		return nil, fmt.Errorf("failed to parse test report XML: %w", err)
	}

	return &report, nil
}

// normalizeNames re-encodes the document with lower-cased element and
// attribute names, dropping namespaces, comments and processing instructions.
func normalizeNames(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		// CTest writes UTF-8 but occasionally labels it differently
		return input, nil
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	elements := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			elements++
			start := xml.StartElement{Name: xml.Name{Local: strings.ToLower(t.Name.Local)}}
			for _, attr := range t.Attr {
				if attr.Name.Space != "" {
					continue
				}
				start.Attr = append(start.Attr, xml.Attr{
					Name:  xml.Name{Local: strings.ToLower(attr.Name.Local)},
					Value: attr.Value,
				})
			}
			err = enc.EncodeToken(start)
		case xml.EndElement:
			err = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: strings.ToLower(t.Name.Local)}})
		case xml.CharData:
			err = enc.EncodeToken(t.Copy())
		}
		if err != nil {
			return nil, err
		}
	}

	if elements == 0 {
		return nil, ErrEmptyDocument
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
