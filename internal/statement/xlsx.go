package statement

import (
	"bytes"

	"github.com/xuri/excelize/v2"

	errors "github.com/Abhinavnist/payment-system-backend/internal"
)

func (p *Parser) parseXLSX(content []byte) ([]Record, error) {
	file, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.NewValidationError("could not open spreadsheet", errors.ErrCodeParseFailed)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	// statements export a single sheet; only the first is read
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, errors.NewValidationError("could not read spreadsheet rows", errors.ErrCodeParseFailed)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := p.vocab.resolve(rows[0])
	if cols.utr == -1 {
		p.logger.Warn("no UTR column found in statement", "header", rows[0])
		return nil, nil
	}

	var records []Record
	for _, row := range rows[1:] {
		if rec, ok := p.recordFromRow(row, cols); ok {
			records = append(records, rec)
		}
		if p.maxRows > 0 && len(records) >= p.maxRows {
			p.logger.Warn("statement truncated at row cap", "max_rows", p.maxRows)
			break
		}
	}

	return records, nil
}
