package util

// ExportTimeFormat 导出成绩单中的作答时间
const ExportTimeFormat = "02.01.2006 15:04"

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 上传文档相关常量
const (
	MimePDF         = "application/pdf"
	MimeZip         = "application/zip"
	MimeText        = "text/plain"
	MimeOctetStream = "application/octet-stream"
	MimeDocx        = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	AllowedDocumentExtensions = []string{".pdf", ".docx", ".txt", ".md"}
)
