package ocr

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
)

const (
	// ImageBasedThreshold is the text length under which a PDF is probably a scan.
	ImageBasedThreshold = 50
	ImageBasedMessage   = "This PDF appears to be image-based. Consider using OCR."

	pageSeparator = "\n\n"
)

// PDFTextExtractor reads the embedded text layer page by page. Nothing is
// rasterised, so results carry no confidence.
type PDFTextExtractor struct {
	logger *slog.Logger
}

func NewPDFTextExtractor(logger *slog.Logger) *PDFTextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFTextExtractor{logger: logger}
}

func (p *PDFTextExtractor) Variant() Variant { return PDFText }

func (p *PDFTextExtractor) Extract(ctx context.Context, doc entity.RawDocument, progress ProgressFunc) (Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Result{Method: MethodPDFText}, common.NewCancelledError("extracting", err)
	}
	report(progress, 0)

	// ledongthuc/pdf decodes fonts and strings; pdfcpu validates the file,
	// finds image XObjects and is the fallback text source.
	reader, rerr := openTextReader(doc.Data)
	pctx, perr := api.ReadValidateAndOptimize(bytes.NewReader(doc.Data), model.NewDefaultConfiguration())
	if rerr != nil && perr != nil {
		p.logger.Error("ocr.pdf.read_failed", "name", doc.Name, "error", perr, "text_error", rerr)
		return Result{Method: MethodPDFText}, common.NewExtractionError("read pdf "+doc.Name, perr)
	}
	if rerr != nil {
		p.logger.Debug("ocr.pdf.text_reader_unavailable", "name", doc.Name, "error", rerr)
	}

	var pageCount int
	if perr == nil {
		pageCount = pctx.PageCount
	} else {
		pageCount = reader.NumPage()
	}

	pages := make([]string, 0, pageCount)
	for pageNr := 1; pageNr <= pageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return Result{Method: MethodPDFText}, common.NewCancelledError("extracting", err)
		}
		var text string
		if reader != nil {
			text = plainPageText(reader, pageNr)
		}
		if text == "" && perr == nil {
			text = extractPageText(pctx, pageNr)
		}
		pages = append(pages, text)
		report(progress, float64(pageNr)/float64(pageCount))
	}

	res := assemblePages(pages)
	if perr == nil {
		res.HasImageStreams = detectImageStreams(pctx)
	}
	res.Duration = time.Since(start)
	if res.LikelyImageBased {
		res.Warnings = append(res.Warnings, ImageBasedMessage)
	}

	p.logger.Info("ocr.pdf.done",
		"name", doc.Name,
		"pages", pageCount,
		"chars", len(res.Text),
		"image_based", res.LikelyImageBased,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// openTextReader parses data with ledongthuc/pdf, which panics on some
// malformed inputs.
func openTextReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("parse pdf: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// plainPageText returns the collapsed text of one page, or "" when the page
// is missing or cannot be decoded.
func plainPageText(r *pdf.Reader, pageNr int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	page := r.Page(pageNr)
	if page.V.IsNull() {
		return ""
	}
	raw, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return collapseSpace(raw)
}

// assemblePages joins per-page text with a blank line and applies the
// image-based heuristic to the result.
func assemblePages(pages []string) Result {
	text := strings.TrimSpace(strings.Join(pages, pageSeparator))
	n := len(pages)
	res := Result{
		Text:      text,
		PageCount: &n,
		WordCount: len(strings.Fields(text)),
		Method:    MethodPDFText,
	}
	if len([]rune(text)) < ImageBasedThreshold {
		res.LikelyImageBased = true
		res.ImageBasedMessage = ImageBasedMessage
	}
	return res
}

func extractPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

// detectImageStreams reports whether the PDF contains image XObjects.
func detectImageStreams(ctx *model.Context) bool {
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
				return true
			}
		}
	}
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}

// textFromContentStream pulls shown strings out of the Tj, TJ, ' and "
// operators. Text positioning operators become word breaks. Operands are
// collected per operator, so line layout in the stream does not matter.
func textFromContentStream(data []byte) string {
	var sb strings.Builder
	var operands []string
	brk := func() {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isPDFSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			s, next := readLiteralString(data, i)
			operands = append(operands, s)
			i = next
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			// inline dictionaries carry no shown text
			i = skipDict(data, i)
		case c == '<':
			s, next := readHexString(data, i)
			operands = append(operands, s)
			i = next
		case c == '[', c == ']':
			i++
		case c == '/':
			i++
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelim(data[i]) {
				i++
			}
		default:
			j := i
			for j < len(data) && !isPDFSpace(data[j]) && !isPDFDelim(data[j]) {
				j++
			}
			if j == i {
				j++
			}
			tok := string(data[i:j])
			i = j
			if isNumberToken(tok) {
				continue
			}
			switch tok {
			case "Tj", "TJ":
				for _, s := range operands {
					sb.WriteString(s)
				}
			case "'", "\"":
				brk()
				if len(operands) > 0 {
					sb.WriteString(operands[len(operands)-1])
				}
			case "Td", "TD", "T*", "Tm", "ET":
				brk()
			case "ID":
				i = skipInlineImage(data, i)
			}
			operands = operands[:0]
		}
	}
	return collapseSpace(sb.String())
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isPDFDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isNumberToken(tok string) bool {
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}

// readLiteralString reads a balanced (...) string starting at data[i] and
// returns the decoded text and the index after the closing parenthesis.
func readLiteralString(data []byte, i int) (string, int) {
	depth := 0
	start := i + 1
	for j := i; j < len(data); j++ {
		switch data[j] {
		case '\\':
			j++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return decodePDFString(data[start:j]), j + 1
			}
		}
	}
	return decodePDFString(data[start:]), len(data)
}

// readHexString reads <...> starting at data[i]. An odd digit count is
// padded with a trailing zero. Two-byte strings with a zero high byte are
// read as UTF-16BE.
func readHexString(data []byte, i int) (string, int) {
	end := bytes.IndexByte(data[i:], '>')
	if end < 0 {
		return "", len(data)
	}
	var digits []byte
	for _, c := range data[i+1 : i+end] {
		if !isPDFSpace(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	raw := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(raw, digits); err != nil {
		return "", i + end + 1
	}
	return decodeHexBytes(raw), i + end + 1
}

func decodeHexBytes(raw []byte) string {
	if len(raw) >= 2 && len(raw)%2 == 0 {
		wide := true
		for k := 0; k < len(raw); k += 2 {
			if raw[k] != 0 {
				wide = false
				break
			}
		}
		if wide {
			u := make([]uint16, len(raw)/2)
			for k := range u {
				u[k] = uint16(raw[2*k])<<8 | uint16(raw[2*k+1])
			}
			return string(utf16.Decode(u))
		}
	}
	return string(raw)
}

func skipDict(data []byte, i int) int {
	depth := 0
	for j := i; j+1 < len(data); j++ {
		switch {
		case data[j] == '<' && data[j+1] == '<':
			depth++
			j++
		case data[j] == '>' && data[j+1] == '>':
			depth--
			j++
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(data)
}

// skipInlineImage jumps past the binary payload that follows ID, up to the
// EI operator.
func skipInlineImage(data []byte, i int) int {
	for j := i; j+2 <= len(data); j++ {
		if data[j] == 'E' && data[j+1] == 'I' && (j == 0 || isPDFSpace(data[j-1])) &&
			(j+2 == len(data) || isPDFSpace(data[j+2])) {
			return j + 2
		}
	}
	return len(data)
}

func collapseSpace(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
