package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExportService renders a practice summary as a spreadsheet for offline review.
type ExportService struct {
	summaries *SummaryService
	logger    *slog.Logger
}

func NewExportService(summaries *SummaryService, logger *slog.Logger) *ExportService {
	return &ExportService{
		summaries: summaries,
		logger:    logger,
	}
}

// ExportSummaryXLSX builds an Excel workbook for the paper's most recent
// attempt: an Overview sheet with the score line and a Review sheet with one
// row per question.
func (s *ExportService) ExportSummaryXLSX(ctx context.Context, paperID string) ([]byte, error) {
	summary, err := s.summaries.BuildSummary(ctx, paperID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeOverviewSheet(f, summary); err != nil {
		return nil, err
	}
	if err := s.writeReviewSheet(f, summary); err != nil {
		return nil, err
	}

	// Drop the default sheet created by excelize.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Exported summary workbook", "paper_id", paperID, "questions", len(summary.Review))
	return buf.Bytes(), nil
}

func (s *ExportService) writeOverviewSheet(f *excelize.File, summary *Summary) error {
	sheetName := "Overview"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	rows := [][]interface{}{
		{"Paper", summary.Paper.Title},
		{"Code", summary.Paper.Code},
		{"Questions", summary.Paper.QuestionCount},
	}

	if summary.HasScore {
		rows = append(rows,
			[]interface{}{"Score", fmt.Sprintf("%d / %d", summary.Result.Score, summary.Result.Max)},
			[]interface{}{"Percentage", fmt.Sprintf("%d%%", summary.Percent)},
			[]interface{}{"Answered", fmt.Sprintf("%d / %d", summary.Result.Answered, summary.Result.Total)},
		)
	} else {
		rows = append(rows, []interface{}{"Score", "not submitted"})
	}

	for rowIndex, row := range rows {
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+1)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}
	return nil
}

func (s *ExportService) writeReviewSheet(f *excelize.File, summary *Summary) error {
	sheetName := "Review"
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	headers := []string{"Number", "Question", "Type", "Your Answer", "Correct Answer", "Marks", "Outcome"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write cell %s: %w", cell, err)
		}
	}

	for rowIndex, item := range summary.Review {
		row := []interface{}{
			item.Number,
			stripMarkup(item.Stem),
			string(item.Type),
			strings.Join(item.Selected, ", "),
			strings.Join(item.Correct, ", "),
			item.Marks,
			string(item.State),
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}
	return nil
}

// stripMarkup removes the lightweight HTML tags question stems may carry so
// spreadsheet cells read as plain text.
func stripMarkup(stem string) string {
	var b strings.Builder
	b.Grow(len(stem))
	inTag := false
	for _, r := range stem {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
