package core

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportFileName is the download name of the exported spreadsheet.
const ExportFileName = "ServiApp_Contatos.xlsx"

// exportSheet is the single worksheet holding the exported contacts.
const exportSheet = "Prestadores"

// exportHeader is the literal header row, in column order.
var exportHeader = []string{
	"Nome ou Razão Social",
	"Serviço Específico",
	"Categoria",
	"Cidade",
	"Estado",
	"Telefone",
	"Email",
}

// ExportXLSX serializes the selected subset of records to an xlsx workbook.
//
// Rows follow store order (newest first), which keeps the output
// deterministic regardless of the order ids were selected in. Selected ids
// absent from records are skipped. An empty selection fails with
// ErrEmptySelection before any bytes are produced.
func ExportXLSX(selected map[string]bool, records []ServiceRecord) ([]byte, error) {
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}

	var rows []ServiceRecord
	for _, r := range records {
		if selected[r.ID] {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, ErrEmptySelection
	}

	f := excelize.NewFile()
	defer f.Close()

	// The default sheet is renamed rather than deleted and recreated, so the
	// workbook always has exactly one sheet.
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := setRow(f, 1, exportHeader); err != nil {
		return nil, err
	}
	for i, r := range rows {
		cells := []string{r.Nome, r.Servico, r.Categoria, r.Cidade, r.Estado, r.Telefone, r.Email}
		if err := setRow(f, i+2, cells); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// setRow writes cells into row n (1-based) of the export sheet.
func setRow(f *excelize.File, n int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
		return fmt.Errorf("set row %d: %w", n, err)
	}
	return nil
}
