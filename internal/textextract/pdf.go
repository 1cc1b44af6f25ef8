package textextract

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// PDFOpener reads PDF files with github.com/ledongthuc/pdf.
type PDFOpener struct{}

func (PDFOpener) Open(path string) (Document, error) {
	return openPDF(path, pdf.Open, (*pdf.Reader).NumPage)
}

func openPDF(path string, open func(string) (*os.File, *pdf.Reader, error), numPage func(*pdf.Reader) int) (doc Document, err error) {
	var f *os.File
	defer func() {
		if r := recover(); r != nil {
			if f != nil {
				_ = f.Close()
			}
			doc, err = nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, r)
		}
	}()

	var r *pdf.Reader
	f, r, err = open(path)
	if err != nil {
		if f != nil {
			_ = f.Close()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}
	return &pdfDocument{file: f, reader: r, pages: numPage(r)}, nil
}

type pdfDocument struct {
	file   *os.File
	reader *pdf.Reader
	pages  int
}

func (d *pdfDocument) NumPage() int { return d.pages }

func (d *pdfDocument) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("page %d: %v", n, r)
		}
	}()

	p := d.reader.Page(n)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}
