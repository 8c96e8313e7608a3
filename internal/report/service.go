package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"certmaster/internal/bank"
	"certmaster/internal/examcfg"
	"certmaster/internal/session"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// Service renders history and knowledge-point statistics into downloadable
// workbooks and session results into a printable sheet.
type Service struct {
	bank    *bank.Service
	configs *examcfg.Store
	history *session.History
}

func NewService(bankSvc *bank.Service, configs *examcfg.Store, history *session.History) *Service {
	return &Service{bank: bankSvc, configs: configs, history: history}
}

// HistoryExcel exports a certificate's session history as an xlsx workbook.
func (s *Service) HistoryExcel(certID string) ([]byte, error) {
	records := s.history.Records(certID)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"date", "type", "score", "total_questions", "answered", "duration_secs", "completed", "wrong_count"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, rec := range records {
		row := i + 2
		values := []any{
			time.UnixMilli(rec.Date).Format("2006-01-02 15:04:05"),
			string(rec.Type),
			rec.Score,
			rec.TotalQuestions,
			len(rec.SavedAnswers),
			rec.Duration,
			rec.IsCompleted,
			len(rec.WrongQuestionIDs),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "H", 20)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// KnowledgeExcel exports cumulative knowledge-point accuracy.
func (s *Service) KnowledgeExcel() ([]byte, error) {
	stats := s.history.Stats()

	points := make([]string, 0, len(stats.KnowledgeStats))
	for kp := range stats.KnowledgeStats {
		points = append(points, kp)
	}
	sort.Strings(points)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"knowledge_point", "answered", "correct", "accuracy_pct"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, kp := range points {
		stat := stats.KnowledgeStats[kp]
		accuracy := 0.0
		if stat.Total > 0 {
			accuracy = float64(stat.Correct) / float64(stat.Total) * 100
		}
		row := i + 2
		values := []any{kp, stat.Total, stat.Correct, accuracy}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "D", 24)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// SessionPDF renders one history record as a printable result sheet with
// the score line and the wrong-question listing.
func (s *Service) SessionPDF(sessionID string) ([]byte, error) {
	rec, err := s.history.Get(sessionID)
	if err != nil {
		return nil, err
	}
	cfg := s.configs.Get(rec.CertID)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Session Result")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Date: %s", time.UnixMilli(rec.Date).Format("2006-01-02 15:04")))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Type: %s", rec.Type))
	pdf.Ln(8)
	if rec.Type == session.ModeExam {
		verdict := "FAIL"
		if rec.Score >= cfg.PassingScore {
			verdict = "PASS"
		}
		pdf.Cell(0, 8, fmt.Sprintf("Score: %d / %d (%s, passing %d)", rec.Score, cfg.TotalScore, verdict, cfg.PassingScore))
	} else {
		pdf.Cell(0, 8, fmt.Sprintf("Accuracy: %d%% over %d answered", rec.Score, len(rec.SavedAnswers)))
	}
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Questions: %d, wrong: %d", rec.TotalQuestions, len(rec.WrongQuestionIDs)))
	pdf.Ln(12)

	if len(rec.WrongQuestionIDs) > 0 {
		pdf.SetFont("Arial", "B", 13)
		pdf.Cell(0, 8, "Wrong questions")
		pdf.Ln(10)
		pdf.SetFont("Arial", "", 11)
		for i, q := range s.bank.ResolveQuestions(rec.WrongQuestionIDs) {
			pdf.MultiCell(0, 6, fmt.Sprintf("%d. %s", i+1, q.Content), "", "L", false)
			pdf.MultiCell(0, 6, fmt.Sprintf("   Correct: %v  [%s]", q.Answer, q.KnowledgePoint), "", "L", false)
			pdf.Ln(2)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
