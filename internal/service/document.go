package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"quizgen_backend/internal/util"
)

// BuildGenerateRequest 根据文档类型准备出题输入。PDF 原样交给模型，其余格式先转成文本。
// maxChars 限制 DOCX 解压后读取的文本长度，<= 0 表示不限制。
func BuildGenerateRequest(name, ext, mimeType string, data []byte, count, maxChars int) (GenerateRequest, error) {
	req := GenerateRequest{Count: count}
	switch ext {
	case ".pdf":
		if len(data) == 0 {
			return req, util.ErrEmptyDocument
		}
		req.Document = &Document{Name: name, MIMEType: util.MimePDF, Data: data}
		return req, nil
	case ".docx":
		text, err := DocxText(data, maxChars)
		if err != nil {
			return req, err
		}
		req.Text = text
	case ".txt", ".md":
		if !utf8.Valid(data) {
			return req, util.ErrUnsupportedFile
		}
		req.Text = string(data)
	default:
		return req, util.ErrUnsupportedFile
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return req, util.ErrEmptyDocument
	}
	return req, nil
}

// docx 正文 XML 的读取上限。标记通常是文本的数十倍，至少保留 1MB。
const (
	docxMarkupRatio = 64
	docxMinXMLBytes = 1 << 20
	docxMaxXMLBytes = 32 << 20
)

func docxXMLLimit(maxChars int) int64 {
	if maxChars <= 0 {
		return docxMaxXMLBytes
	}
	return min(max(int64(maxChars)*docxMarkupRatio, docxMinXMLBytes), docxMaxXMLBytes)
}

// DocxText 读取 word/document.xml 中的段落文本，段落之间换行。
// 最多返回 maxChars 个字符；解压后的 XML 超过读取上限时只使用已读到的部分。
func DocxText(data []byte, maxChars int) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", util.ErrUnsupportedFile
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return "", util.ErrUnsupportedFile
	}

	rc, err := body.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	lr := &io.LimitedReader{R: rc, N: docxXMLLimit(maxChars)}
	text := newBoundedText(maxChars)
	dec := xml.NewDecoder(lr)
	inText := false
	for !text.full() {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if lr.N <= 0 {
				// 达到读取上限
				break
			}
			return "", util.ErrUnsupportedFile
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				text.write("\t")
			case "br":
				text.write("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text.write("\n")
			}
		case xml.CharData:
			if inText {
				text.write(string(t))
			}
		}
	}
	return text.sb.String(), nil
}

// boundedText 按字符数截断的 strings.Builder，n <= 0 时不限制
type boundedText struct {
	sb        strings.Builder
	left      int
	unlimited bool
}

func newBoundedText(n int) *boundedText {
	return &boundedText{left: n, unlimited: n <= 0}
}

func (b *boundedText) full() bool {
	return !b.unlimited && b.left <= 0
}

func (b *boundedText) write(s string) {
	if b.unlimited {
		b.sb.WriteString(s)
		return
	}
	if b.left <= 0 {
		return
	}
	if n := utf8.RuneCountInString(s); n > b.left {
		s = truncateRunes(s, b.left)
		b.left = 0
	} else {
		b.left -= n
	}
	b.sb.WriteString(s)
}
