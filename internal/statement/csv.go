package statement

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	errors "github.com/Abhinavnist/payment-system-backend/internal"
)

func (p *Parser) parseCSV(content []byte) ([]Record, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1 // banks pad trailing columns inconsistently
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.NewValidationError("could not read statement header", errors.ErrCodeParseFailed)
	}

	cols := p.vocab.resolve(header)
	if cols.utr == -1 {
		p.logger.Warn("no UTR column found in statement", "header", header)
		return nil, nil
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewValidationError("malformed statement row", errors.ErrCodeParseFailed)
		}

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

// recordFromRow extracts a record from one data row using resolved column
// indexes. Rows without a UTR value are skipped.
func (p *Parser) recordFromRow(row []string, cols columns) (Record, bool) {
	if cols.utr >= len(row) {
		return Record{}, false
	}

	utr := strings.TrimSpace(row[cols.utr])
	if utr == "" {
		return Record{}, false
	}

	rec := Record{UTR: utr}
	if cols.amount >= 0 && cols.amount < len(row) {
		rec.Amount = parseAmount(row[cols.amount])
	}
	if cols.date >= 0 && cols.date < len(row) {
		rec.Date = parseDate(row[cols.date])
	}
	return rec, true
}
