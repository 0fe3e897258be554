package util

import (
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
)

// DocumentExt 返回小写扩展名，不在允许列表中时返回 ErrUnsupportedFile
func DocumentExt(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(AllowedDocumentExtensions, ext) {
		return "", ErrUnsupportedFile
	}
	return ext, nil
}

// ValidateDocument 按文件头校验内容与扩展名一致
// docx 是 zip 包，txt/md 只要求是文本
func ValidateDocument(reader io.Reader, ext string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	mimeType := http.DetectContentType(buffer[:n])

	var ok bool
	switch ext {
	case ".pdf":
		ok = mimeType == MimePDF
	case ".docx":
		ok = mimeType == MimeZip
	case ".txt", ".md":
		ok = strings.HasPrefix(mimeType, "text/")
	}
	if !ok {
		return mimeType, ErrUnsupportedFile
	}

	if ext == ".docx" {
		return MimeDocx, nil
	}
	return mimeType, nil
}
