package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"quizgen_backend/internal/config"
	"quizgen_backend/internal/model"
	"quizgen_backend/internal/repository"
	"quizgen_backend/internal/util"
	"quizgen_backend/pkg/logger"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	leaderboardSize = 3
	historyLimit    = 500
	qrSize          = 256
)

type ReportService struct {
	TestRepo   *repository.TestRepository
	ResultRepo *repository.ResultRepository
	Cfg        *config.Config
}

func NewReportService(testRepo *repository.TestRepository, resultRepo *repository.ResultRepository, cfg *config.Config) *ReportService {
	return &ReportService{TestRepo: testRepo, ResultRepo: resultRepo, Cfg: cfg}
}

type ChartData struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

type Dashboard struct {
	TotalTests   int64                       `json:"totalTests"`
	TotalResults int64                       `json:"totalResults"`
	Chart        ChartData                   `json:"chart"`
	Leaderboard  []repository.LeaderboardRow `json:"leaderboard"`
}

func (s *ReportService) Dashboard(ctx context.Context, owner uint) (*Dashboard, error) {
	totalTests, err := s.TestRepo.CountByTeacher(ctx, owner)
	if err != nil {
		return nil, err
	}
	totalResults, err := s.ResultRepo.CountByTeacher(ctx, owner)
	if err != nil {
		return nil, err
	}
	counts, err := s.ResultRepo.CountsPerTest(ctx, owner)
	if err != nil {
		return nil, err
	}
	board, err := s.ResultRepo.Leaderboard(ctx, owner, leaderboardSize)
	if err != nil {
		return nil, err
	}

	chart := ChartData{Labels: make([]string, len(counts)), Data: make([]int, len(counts))}
	for i, c := range counts {
		chart.Labels[i] = c.Title
		chart.Data[i] = c.ResultCount
	}

	return &Dashboard{
		TotalTests:   totalTests,
		TotalResults: totalResults,
		Chart:        chart,
		Leaderboard:  board,
	}, nil
}

type History struct {
	Tests   []repository.TestListRow      `json:"tests"`
	Results []repository.TeacherResultRow `json:"results"`
}

func (s *ReportService) History(ctx context.Context, owner uint) (*History, error) {
	tests, err := s.TestRepo.ListByTeacher(ctx, owner)
	if err != nil {
		return nil, err
	}
	results, err := s.ResultRepo.ListByTeacher(ctx, owner, historyLimit)
	if err != nil {
		return nil, err
	}
	return &History{Tests: tests, Results: results}, nil
}

func (s *ReportService) findOwned(ctx context.Context, owner, testID uint) (*model.Test, error) {
	test, err := s.TestRepo.FindOwned(ctx, testID, owner)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTestNotFound
	}
	return test, err
}

func (s *ReportService) Results(ctx context.Context, owner, testID uint, page, limit int, studentName string) (*util.PageResponse, error) {
	if _, err := s.findOwned(ctx, owner, testID); err != nil {
		return nil, err
	}
	list, total, err := s.ResultRepo.ListByTest(ctx, testID, page, limit, strings.TrimSpace(studentName))
	if err != nil {
		return nil, err
	}
	return &util.PageResponse{List: list, Total: total, Page: page, Limit: limit}, nil
}

type Export struct {
	Filename string
	Data     []byte
}

var csvHeader = []string{"Student name", "Score", "Questions", "Taken at"}

// csvCell 以公式字符开头的文本加单引号，Excel 打开时按文本显示
func csvCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// WriteResultsCSV 写入带 BOM 的 UTF-8 CSV，Excel 可直接打开
func WriteResultsCSV(w io.Writer, results []model.StudentResult) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			csvCell(r.StudentName),
			strconv.Itoa(r.Score),
			strconv.Itoa(r.TotalQuestions),
			r.CreatedAt.Format(util.ExportTimeFormat),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportResults 按分数从高到低导出试卷成绩
func (s *ReportService) ExportResults(ctx context.Context, owner, testID uint) (*Export, error) {
	test, err := s.findOwned(ctx, owner, testID)
	if err != nil {
		return nil, err
	}
	results, err := s.ResultRepo.ListForExport(ctx, testID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteResultsCSV(&buf, results); err != nil {
		return nil, err
	}
	return &Export{
		Filename: fmt.Sprintf("%s_results.csv", test.Title),
		Data:     buf.Bytes(),
	}, nil
}

// PublicLink 学生作答链接，未配置 public_base_url 时使用请求来源
func (s *ReportService) PublicLink(origin string, testID uint) string {
	base := s.Cfg.Quiz.PublicBaseURL
	if base == "" {
		base = origin
	}
	return fmt.Sprintf("%s/test/%d/", strings.TrimRight(base, "/"), testID)
}

func (s *ReportService) QRCode(ctx context.Context, owner, testID uint, origin string) ([]byte, string, error) {
	if _, err := s.findOwned(ctx, owner, testID); err != nil {
		return nil, "", err
	}
	link := s.PublicLink(origin, testID)
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		return nil, "", err
	}
	return png, link, nil
}

type ResultAnalysis struct {
	Result    *model.StudentResult `json:"result"`
	TestTitle string               `json:"testTitle"`
	Items     []AnalysisItem       `json:"items"`
	// Dangling 答卷中已无法关联到题目的条目数
	Dangling int `json:"dangling"`
}

// Analysis 以当前题库回看一次作答，已删除的题目跳过
func (s *ReportService) Analysis(ctx context.Context, owner, resultID uint) (*ResultAnalysis, error) {
	result, err := s.ResultRepo.FindByID(ctx, resultID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}

	test, err := s.TestRepo.FindOwned(ctx, result.TestID, owner)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}

	questions, err := s.TestRepo.ListQuestions(ctx, test.ID)
	if err != nil {
		return nil, err
	}

	items, dangling := buildAnalysis(result.Answers(), questions)
	if len(dangling) > 0 {
		logger.Log.Info("Result references deleted questions",
			zap.Uint("resultID", result.ID),
			zap.Int("dangling", len(dangling)),
		)
	}
	return &ResultAnalysis{
		Result:    result,
		TestTitle: test.Title,
		Items:     items,
		Dangling:  len(dangling),
	}, nil
}
