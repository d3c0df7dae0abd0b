package utils

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedSheet = errors.New("unsupported file type; use .csv or .xlsx")

var (
	productColumnNames = []string{"product_id", "productid", "id", "produto"}
	priceColumnNames   = []string{"price", "preco", "preço", "valor"}
)

// ReadRows returns every row of a CSV file or of the first sheet of an XLSX workbook.
func ReadRows(content []byte, ext string) ([][]string, error) {
	switch strings.ToLower(ext) {
	case ".csv":
		r := csv.NewReader(bytes.NewReader(content))
		r.FieldsPerRecord = -1
		r.TrimLeadingSpace = true
		if sep := sniffSeparator(content); sep != ',' {
			r.Comma = sep
		}
		return r.ReadAll()
	case ".xlsx":
		f, err := excelize.OpenReader(bytes.NewReader(content))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return [][]string{}, nil
		}
		rs, err := f.Rows(sheets[0])
		if err != nil {
			return nil, err
		}
		defer rs.Close()
		rows := [][]string{}
		for rs.Next() {
			r, err := rs.Columns()
			if err != nil {
				return nil, err
			}
			rows = append(rows, r)
		}
		return rows, nil
	default:
		return nil, ErrUnsupportedSheet
	}
}

// sniffSeparator picks ';' for spreadsheets exported with a pt-BR locale.
func sniffSeparator(content []byte) rune {
	line, _, _ := bytes.Cut(content, []byte("\n"))
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

type PriceRow struct {
	Row       int
	ProductID string
	Price     float64
}

type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ParsePriceRows reads the header row, locates the product and price columns and
// returns the usable rows. Row numbers are 1-based like in a spreadsheet.
func ParsePriceRows(rows [][]string) ([]PriceRow, []SkippedRow, error) {
	if len(rows) == 0 {
		return nil, nil, errors.New("empty file")
	}
	productCol, priceCol := -1, -1
	for i, h := range rows[0] {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if productCol < 0 && contains(productColumnNames, name) {
			productCol = i
		}
		if priceCol < 0 && contains(priceColumnNames, name) {
			priceCol = i
		}
	}
	if productCol < 0 || priceCol < 0 {
		return nil, nil, fmt.Errorf("header must have a product column (%s) and a price column (%s)",
			strings.Join(productColumnNames, "/"), strings.Join(priceColumnNames, "/"))
	}

	out := []PriceRow{}
	skipped := []SkippedRow{}
	for i, r := range rows[1:] {
		rowNum := i + 2
		if blank(r) {
			continue
		}
		pid := strings.TrimSpace(cell(r, productCol))
		if pid == "" {
			skipped = append(skipped, SkippedRow{Row: rowNum, Reason: "missing product"})
			continue
		}
		price, err := ParseDecimal(cell(r, priceCol))
		if err != nil || price <= 0 {
			skipped = append(skipped, SkippedRow{Row: rowNum, Reason: "invalid price"})
			continue
		}
		out = append(out, PriceRow{Row: rowNum, ProductID: pid, Price: price})
	}
	return out, skipped, nil
}

// ParseDecimal accepts "12.5", "12,50", "R$ 1.234,56" and similar. Only a
// leading currency symbol is stripped; any other letter makes the value invalid.
func ParseDecimal(s string) (float64, error) {
	v := strings.TrimSpace(s)
	for _, prefix := range []string{"R$", "r$", "$"} {
		if strings.HasPrefix(v, prefix) {
			v = strings.TrimSpace(strings.TrimPrefix(v, prefix))
			break
		}
	}
	if v == "" {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	for i, ch := range v {
		if (ch >= '0' && ch <= '9') || ch == '.' || ch == ',' || (ch == '-' && i == 0) {
			continue
		}
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if strings.Contains(v, ",") {
		v = strings.ReplaceAll(v, ".", "")
		v = strings.ReplaceAll(v, ",", ".")
	}
	return strconv.ParseFloat(v, 64)
}

// StatsWorkbook renders a report as an XLSX file with "Daily" and "Top products" sheets.
func StatsWorkbook(report StatsReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const daily, top = "Daily", "Top products"
	if err := f.SetSheetName("Sheet1", daily); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(top); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(daily, "A1", &[]any{"Data", "Visualizações", "Cliques", "Comparações"}); err != nil {
		return nil, err
	}
	for i, d := range report.Daily {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(daily, cellRef, &[]any{d.Date, d.Visualizacoes, d.Cliques, d.Comparacoes}); err != nil {
			return nil, err
		}
	}
	totalRef, _ := excelize.CoordinatesToCellName(1, len(report.Daily)+2)
	if err := f.SetSheetRow(daily, totalRef, &[]any{"Total", report.Totals.Views, report.Totals.Clicks, report.Totals.Comparisons}); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(top, "A1", &[]any{"Produto", "Visualizações", "Cliques"}); err != nil {
		return nil, err
	}
	for i, p := range report.TopProducts {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(top, cellRef, &[]any{p.Name, p.Views, p.Clicks}); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func blank(r []string) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func cell(r []string, i int) string {
	if i < len(r) {
		return r[i]
	}
	return ""
}
