// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

// Package doctext turns a fetched gazette document into plain text. The
// bulletin serves decrees as PDF, but some documents (and every error page)
// come back as HTML; both are handled, and the caller never needs to know
// which form it got.
package doctext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

var errEmptyDocument = errors.New("empty document")

// FromFile reads a cached document and extracts its text.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("reading document %s: %w", path, err)
	}

	return FromBytes(data)
}

// FromBytes sniffs the document format and extracts its text. Unknown
// formats are assumed to already be plain text.
func FromBytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errEmptyDocument
	}

	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return pdfText(data)
	case looksLikeHTML(data):
		return htmlText(data)
	default:
		return string(data), nil
	}
}

func looksLikeHTML(data []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(data[:min(len(data), 256)]))

	return bytes.HasPrefix(head, []byte("<!doctype")) ||
		bytes.HasPrefix(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<body"))
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	r, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, r); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}

	return sb.String(), nil
}

func htmlText(data []byte) (string, error) {
	node, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parsing body as HTML: %w", err)
	}

	sb := strings.Builder{}
	nodeText(node, &sb)

	return sb.String(), nil
}

// nodeText collects the visible text of a node tree, one space between text
// nodes, skipping script and style subtrees.
func nodeText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		tmp := strings.TrimSpace(n.Data)
		if len(tmp) > 0 {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}

			sb.WriteString(tmp)
		}

		return
	}

	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style":
			return
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		nodeText(child, sb)
	}
}
