package service

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"quizgen_backend/internal/model"
	"quizgen_backend/internal/util"
)

func TestKeyPool(t *testing.T) {
	pool := NewKeyPool(nil)
	if _, err := pool.Pick(); !errors.Is(err, ErrNoAPIKeys) {
		t.Fatalf("empty pool err = %v", err)
	}

	pool.Replace([]string{"k1", "", "k2"})
	if pool.Len() != 2 {
		t.Fatalf("len = %d, want 2", pool.Len())
	}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		k, err := pool.Pick()
		if err != nil {
			t.Fatal(err)
		}
		seen[k] = true
	}
	if !seen["k1"] || !seen["k2"] || len(seen) != 2 {
		t.Fatalf("picked keys = %v", seen)
	}
}

func TestParseCandidates(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "plain array", raw: `[{"question":"Q","options":["A","B","C","D"],"correct":0}]`, want: 1},
		{name: "fenced", raw: "```json\n[{\"question\":\"Q\",\"options\":[\"A\"],\"correct\":0},{\"question\":\"R\",\"options\":[\"A\"],\"correct\":0}]\n```", want: 2},
		{name: "wrapped object", raw: `{"questions":[{"question":"Q","options":["A","B"],"correct":1}]}`, want: 1},
		{name: "empty", raw: "```\n```", wantErr: true},
		{name: "prose", raw: "Sorry, I cannot help with that.", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCandidates(tc.raw)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if len(got) != tc.want {
				t.Fatalf("got %d candidates, want %d", len(got), tc.want)
			}
		})
	}
}

func TestNormalizeCandidates(t *testing.T) {
	cands := []CandidateQuestion{
		{Question: " What is H2O? ", Options: []string{"Water", "Salt", "Air", "Fire"}, Correct: intPtr(0)},
		{Question: "Two options", Options: []string{"Yes", "No"}, Correct: intPtr(1)},
		{Question: "", Options: []string{"a", "b"}, Correct: intPtr(0)},
		{Question: "Out of range", Options: []string{"a", "b"}, Correct: intPtr(2)},
		{Question: "Negative", Options: []string{"a", "b"}, Correct: intPtr(-1)},
		{Question: "Missing correct", Options: []string{"a", "b"}},
		{Question: "Five options", Options: []string{"a", "b", "c", "d", "e"}, Correct: intPtr(4)},
		{Question: "Blank correct", Options: []string{"a", " "}, Correct: intPtr(1)},
	}

	got := NormalizeCandidates(cands, 0)
	if len(got) != 2 {
		t.Fatalf("kept %d questions, want 2", len(got))
	}
	if got[0].Text != "What is H2O?" || got[0].CorrectOption != 1 {
		t.Fatalf("first = %+v", got[0])
	}
	want := []string{"Yes", "No", model.OptionPlaceholder, model.OptionPlaceholder}
	for i, o := range got[1].Options() {
		if o != want[i] {
			t.Fatalf("padded options = %q", got[1].Options())
		}
	}
	if got[1].CorrectOption != 2 {
		t.Fatalf("second correct = %d, want 2", got[1].CorrectOption)
	}

	if limited := NormalizeCandidates(cands, 1); len(limited) != 1 {
		t.Fatalf("limit ignored: %d", len(limited))
	}
}

func TestBuildPrompt(t *testing.T) {
	text := strings.Repeat("ж", 50)
	p := BuildPrompt(3, text, 10)
	if !strings.HasPrefix(p, "Create 3 multiple choice questions.") {
		t.Fatalf("prompt = %q", p)
	}
	if !strings.HasSuffix(p, "Text: "+strings.Repeat("ж", 10)) {
		t.Fatalf("text not truncated by characters: %q", p)
	}
	if p := BuildPrompt(2, "", 10); !strings.Contains(p, "attached document") {
		t.Fatalf("document prompt = %q", p)
	}
}

func makeDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDocxText(t *testing.T) {
	data := makeDocx(t, `<w:p><w:r><w:t>Cells divide</w:t></w:r><w:r><w:t xml:space="preserve"> by mitosis.</w:t></w:r></w:p><w:p><w:r><w:t>Second</w:t><w:tab/><w:t>para</w:t></w:r></w:p>`)
	got, err := DocxText(data, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Cells divide by mitosis.\nSecond\tpara\n" {
		t.Fatalf("text = %q", got)
	}

	if _, err := DocxText([]byte("not a zip"), 0); !errors.Is(err, util.ErrUnsupportedFile) {
		t.Fatalf("garbage err = %v", err)
	}
}

func TestDocxTextLimitsExpandedSize(t *testing.T) {
	// 64MB 的单段文本压缩后只有几十 KB
	run := strings.Repeat("a", 64<<20)
	data := makeDocx(t, `<w:p><w:r><w:t>`+run+`</w:t></w:r></w:p>`)
	if len(data) > 1<<20 {
		t.Fatalf("compressed size = %d", len(data))
	}

	got, err := DocxText(data, 100)
	if err != nil {
		t.Fatal(err)
	}
	if got != strings.Repeat("a", 100) {
		t.Fatalf("len(text) = %d", len(got))
	}

	// 只有标记没有文本时，读到 XML 上限即停止
	filler := strings.Repeat("<w:r></w:r>", (4<<20)/len("<w:r></w:r>"))
	data2 := makeDocx(t, `<w:p>`+filler+`<w:r><w:t>tail</w:t></w:r></w:p>`)
	got, err = DocxText(data2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("text after xml limit = %q", got)
	}

	req, err := BuildGenerateRequest("big.docx", ".docx", util.MimeDocx, data, 4, 50)
	if err != nil || req.Text != strings.Repeat("a", 50) {
		t.Fatalf("docx request len %d, err %v", len(req.Text), err)
	}
}

func TestDocxTextTruncatesMultibyte(t *testing.T) {
	data := makeDocx(t, `<w:p><w:r><w:t>细胞分裂</w:t></w:r></w:p><w:p><w:r><w:t>第二段</w:t></w:r></w:p>`)
	got, err := DocxText(data, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got != "细胞分" {
		t.Fatalf("text = %q", got)
	}
}

func TestBuildGenerateRequest(t *testing.T) {
	pdf := []byte("%PDF-1.4 body")
	req, err := BuildGenerateRequest("a.pdf", ".pdf", util.MimePDF, pdf, 4, 100)
	if err != nil {
		t.Fatal(err)
	}
	if req.Document == nil || req.Document.MIMEType != util.MimePDF || req.Text != "" || req.Count != 4 {
		t.Fatalf("pdf request = %+v", req)
	}

	req, err = BuildGenerateRequest("a.md", ".md", "text/plain", []byte("  # Notes\n"), 4, 100)
	if err != nil || req.Text != "# Notes" || req.Document != nil {
		t.Fatalf("md request = %+v, err %v", req, err)
	}

	if _, err := BuildGenerateRequest("a.txt", ".txt", "text/plain", []byte("  \n"), 4, 100); !errors.Is(err, util.ErrEmptyDocument) {
		t.Fatalf("blank text err = %v", err)
	}
	if _, err := BuildGenerateRequest("a.docx", ".docx", util.MimeDocx, makeDocx(t, `<w:p></w:p>`), 4, 100); !errors.Is(err, util.ErrEmptyDocument) {
		t.Fatalf("empty docx err = %v", err)
	}
}
