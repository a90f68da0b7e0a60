package statement

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

// Free-text statements interleave UTR, amount, and date across lines. A UTR
// mention opens a record; amount and date lines seen before the next UTR
// attach to it.
var (
	utrLinePattern    = regexp.MustCompile(`(?i)(?:UTR|Ref|Reference|Txn)\s*(?:No|Number|ID|#|:)?\s*[#:]?\s*([A-Za-z0-9]{6,18})`)
	amountLinePattern = regexp.MustCompile(`(?:Rs|INR|₹)\s*\.?\s*(\d+(?:[.,]\d+)?)`)
	dateLinePattern   = regexp.MustCompile(`(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`)
)

func (p *Parser) parseText(content []byte) ([]Record, error) {
	var records []Record
	var current *Record

	flush := func() {
		if current != nil && current.UTR != "" {
			records = append(records, *current)
		}
		current = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()

		if m := utrLinePattern.FindStringSubmatch(line); m != nil {
			flush()
			if p.maxRows > 0 && len(records) >= p.maxRows {
				p.logger.Warn("statement truncated at row cap", "max_rows", p.maxRows)
				return records, nil
			}
			current = &Record{UTR: m[1]}
		}

		if current == nil {
			continue
		}

		if current.Amount == nil {
			if m := amountLinePattern.FindStringSubmatch(line); m != nil {
				raw := strings.ReplaceAll(m[1], ",", "")
				if amount, err := strconv.ParseFloat(raw, 64); err == nil {
					current.Amount = &amount
				}
			}
		}

		if current.Date == nil {
			if m := dateLinePattern.FindStringSubmatch(line); m != nil {
				current.Date = parseDate(m[1])
			}
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return records, err
	}
	return records, nil
}
