package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/util"

	"github.com/xuri/excelize/v2"
)

const (
	SheetWrongAnswers = "Wrong Answers"
	SheetGoals        = "Goals"
	SheetCalendar     = "Calendar"
	SheetScores       = "Scores"
)

// ExportService 将用户数据导出为 xlsx，每个序列一张工作表
type ExportService struct {
	Storage *StorageService
	Clock   util.Clock
}

func NewExportService(storage *StorageService, clock util.Clock) *ExportService {
	return &ExportService{Storage: storage, Clock: clock}
}

type ExportArchive struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Provider string `json:"provider"`
	Size     int    `json:"size"`
}

func (s *ExportService) Workbook(rec *model.UserRecord) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name   string
		header []interface{}
		rows   [][]interface{}
	}{
		{
			name:   SheetWrongAnswers,
			header: []interface{}{"Date", "Section", "Question Type", "Question", "Your Answer", "Correct Answer", "Explanation", "Tags"},
			rows:   wrongAnswerRows(rec.WrongAnswers),
		},
		{
			name:   SheetGoals,
			header: []interface{}{"Title", "Category", "Completed", "Due Date", "Created", "Description"},
			rows:   goalRows(rec.Goals),
		},
		{
			name:   SheetCalendar,
			header: []interface{}{"Date", "Title", "Category", "Start", "End", "Completed", "Description"},
			rows:   eventRows(rec.CalendarEvents),
		},
		{
			name:   SheetScores,
			header: []interface{}{"Date", "Score", "Total", "Test Type", "Reading", "Logic", "Analytical", "Section", "Notes"},
			rows:   scoreRows(rec.ScoreRecords),
		},
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet.name); err != nil {
			return nil, err
		}

		header := sheet.header
		if err := f.SetSheetRow(sheet.name, "A1", &header); err != nil {
			return nil, err
		}
		for r, row := range sheet.rows {
			row := row
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheet.name, cell, &row); err != nil {
				return nil, err
			}
		}
	}
	f.SetActiveSheet(0)

	return f.WriteToBuffer()
}

// Filename 导出文件名带上时间戳，避免覆盖
func (s *ExportService) Filename(owner string) string {
	return fmt.Sprintf("notebook-%s-%s.xlsx", owner, s.Clock.Now().Format("20060102T150405.000"))
}

// Archive 生成工作簿并上传到存储后端
func (s *ExportService) Archive(ctx context.Context, rec *model.UserRecord) (*ExportArchive, error) {
	buf, err := s.Workbook(rec)
	if err != nil {
		return nil, err
	}

	filename := "exports/" + s.Filename(rec.UserID)
	size := buf.Len()
	url, err := s.Storage.Upload(ctx, filename, buf, int64(size), util.MimeXLSX)
	if err != nil {
		return nil, err
	}

	return &ExportArchive{
		Filename: filename,
		URL:      url,
		Provider: s.Storage.Provider.Name(),
		Size:     size,
	}, nil
}

func wrongAnswerRows(items []model.WrongAnswer) [][]interface{} {
	rows := make([][]interface{}, 0, len(items))
	for _, a := range items {
		rows = append(rows, []interface{}{a.Date, a.Section, a.QuestionType, a.Question, a.YourAnswer, a.CorrectAnswer, a.Explanation, strings.Join(a.Tags, ", ")})
	}
	return rows
}

func goalRows(items []model.Goal) [][]interface{} {
	rows := make([][]interface{}, 0, len(items))
	for _, g := range items {
		rows = append(rows, []interface{}{g.Title, string(g.Category), g.Completed, g.DueDate, g.CreatedDate, g.Description})
	}
	return rows
}

func eventRows(items []model.CalendarEvent) [][]interface{} {
	rows := make([][]interface{}, 0, len(items))
	for _, e := range items {
		rows = append(rows, []interface{}{e.Date, e.Title, e.Category, e.StartTime, e.EndTime, e.IsCompleted(), e.Description})
	}
	return rows
}

func scoreRows(items []model.ScoreRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(items))
	for _, r := range items {
		rows = append(rows, []interface{}{r.Date, r.Score, r.TotalPossible, string(r.TestType), optionalInt(r.Reading), optionalInt(r.Logic), optionalInt(r.Analytical), r.Section, r.Notes})
	}
	return rows
}

func optionalInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
